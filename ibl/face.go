package ibl

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// CubeFace indexes the six faces of a cubemap in the standard GL order.
type CubeFace int

const (
	FacePositiveX CubeFace = iota
	FaceNegativeX
	FacePositiveY
	FaceNegativeY
	FacePositiveZ
	FaceNegativeZ
)

// FaceCount is the number of faces in a cubemap.
const FaceCount = 6

// Faces lists every face in capture order.
var Faces = [FaceCount]CubeFace{
	FacePositiveX, FaceNegativeX,
	FacePositiveY, FaceNegativeY,
	FacePositiveZ, FaceNegativeZ,
}

// FaceView is one entry of the canonical capture table: the camera sits at
// the origin, looks along Direction and uses Up as its up vector.
type FaceView struct {
	Direction mgl32.Vec3
	Up        mgl32.Vec3
}

// captureViews is shared by every cube pass. The up vectors make the
// rendered image of each face line up with GL face addressing (row 0 = t 0).
var captureViews = [FaceCount]FaceView{
	FacePositiveX: {Direction: mgl32.Vec3{1, 0, 0}, Up: mgl32.Vec3{0, -1, 0}},
	FaceNegativeX: {Direction: mgl32.Vec3{-1, 0, 0}, Up: mgl32.Vec3{0, -1, 0}},
	FacePositiveY: {Direction: mgl32.Vec3{0, 1, 0}, Up: mgl32.Vec3{0, 0, 1}},
	FaceNegativeY: {Direction: mgl32.Vec3{0, -1, 0}, Up: mgl32.Vec3{0, 0, -1}},
	FacePositiveZ: {Direction: mgl32.Vec3{0, 0, 1}, Up: mgl32.Vec3{0, -1, 0}},
	FaceNegativeZ: {Direction: mgl32.Vec3{0, 0, -1}, Up: mgl32.Vec3{0, -1, 0}},
}

var faceNames = [FaceCount]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}

func (f CubeFace) String() string {
	if f < 0 || int(f) >= FaceCount {
		return "invalid"
	}
	return faceNames[f]
}

// View returns the canonical direction/up pair for the face.
func (f CubeFace) View() FaceView { return captureViews[f] }

// Axis returns the face's principal axis.
func (f CubeFace) Axis() mgl32.Vec3 { return captureViews[f].Direction }

// CaptureView returns the view matrix used to render face f.
func CaptureView(f CubeFace) mgl32.Mat4 {
	v := captureViews[f]
	return mgl32.LookAtV(mgl32.Vec3{}, v.Direction, v.Up)
}

// CaptureProjection is the 90° square projection shared by every face.
func CaptureProjection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 10)
}

// FaceTexelDirection maps texture coordinates (s, t) in [0,1] on face f to
// the (unnormalised) world direction the texel represents.
func FaceTexelDirection(f CubeFace, s, t float32) mgl32.Vec3 {
	sc := 2*s - 1
	tc := 2*t - 1
	switch f {
	case FacePositiveX:
		return mgl32.Vec3{1, -tc, -sc}
	case FaceNegativeX:
		return mgl32.Vec3{-1, -tc, sc}
	case FacePositiveY:
		return mgl32.Vec3{sc, 1, tc}
	case FaceNegativeY:
		return mgl32.Vec3{sc, -1, -tc}
	case FacePositiveZ:
		return mgl32.Vec3{sc, -tc, 1}
	default:
		return mgl32.Vec3{-sc, -tc, -1}
	}
}

// DirectionToFace selects the face hit by dir and returns the texture
// coordinates on that face. It is the inverse of FaceTexelDirection.
func DirectionToFace(dir mgl32.Vec3) (CubeFace, float32, float32) {
	ax, ay, az := math32.Abs(dir[0]), math32.Abs(dir[1]), math32.Abs(dir[2])

	var face CubeFace
	var ma, sc, tc float32
	switch {
	case ax >= ay && ax >= az:
		ma = ax
		if dir[0] > 0 {
			face, sc, tc = FacePositiveX, -dir[2], -dir[1]
		} else {
			face, sc, tc = FaceNegativeX, dir[2], -dir[1]
		}
	case ay >= az:
		ma = ay
		if dir[1] > 0 {
			face, sc, tc = FacePositiveY, dir[0], dir[2]
		} else {
			face, sc, tc = FaceNegativeY, dir[0], -dir[2]
		}
	default:
		ma = az
		if dir[2] > 0 {
			face, sc, tc = FacePositiveZ, dir[0], -dir[1]
		} else {
			face, sc, tc = FaceNegativeZ, -dir[0], -dir[1]
		}
	}
	if ma == 0 {
		return FacePositiveX, 0.5, 0.5
	}
	return face, 0.5 * (sc/ma + 1), 0.5 * (tc/ma + 1)
}
