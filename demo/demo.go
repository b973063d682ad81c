// Package demo is the interactive PBR scene: a grid of spheres lit by four
// point lights and by the image-based lighting baked from an HDR panorama.
package demo

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"pbr-engine/assets"
	"pbr-engine/config"
	"pbr-engine/core"
	"pbr-engine/ibl"
	"pbr-engine/internal/opengl"
)

// skyboxUnit is the first texture unit not reserved by ibl.TextureUnits.
var skyboxUnit = uint32(len(ibl.TextureUnits()))

// Rusted-iron texture set, relative to SceneConfig.TextureDir.
var materialFiles = struct {
	Albedo, Normal, Metallic, Roughness, AO string
}{
	Albedo:    "rustediron2_basecolor.png",
	Normal:    "rustediron2_normal.png",
	Metallic:  "rustediron2_metallic.png",
	Roughness: "rustediron2_roughness.png",
	AO:        "rustediron2_ao.png",
}

// Demo owns every GL resource of the scene. All methods must run on the
// thread that owns the GL context.
type Demo struct {
	log   zerolog.Logger
	cfg   *config.Config
	cache *assets.Cache

	renderer *opengl.Renderer
	device   *opengl.Device
	baker    *ibl.Baker
	panorama ibl.Handle
	skybox   *opengl.Skybox
	post     *opengl.PostProcess

	sphere   *core.MeshData
	textures opengl.Material
	uploaded []*assets.Texture

	camera   *Camera
	controls Controls
	lights   []opengl.PointLight
	panel    Panel

	prev      core.InputState
	mapsBound bool

	fpsFrames int
	fpsStart  float64
	fps       float64
}

// Setup creates the renderer, the capture device and the baker, and loads
// the scene assets. A missing panorama or texture only degrades the scene;
// a failure to create the renderer or the baker is returned.
func Setup(win *core.Window, cfg *config.Config, log zerolog.Logger) (*Demo, error) {
	d := &Demo{
		log:      log.With().Str("component", "demo").Logger(),
		cfg:      cfg,
		cache:    assets.NewCache(log),
		camera:   NewCamera(),
		controls: NewControls(cfg.Scene),
		lights:   Lights(cfg.Scene.Lights),
	}

	var err error
	if d.renderer, err = opengl.NewRenderer(log); err != nil {
		return nil, err
	}
	if d.device, err = opengl.NewDevice(win.GetFramebufferSize, log); err != nil {
		d.Destroy()
		return nil, err
	}

	d.panorama = d.loadPanorama(cfg.Scene.Panorama)
	d.baker, err = ibl.NewBaker(d.device, cfg.Settings(),
		ibl.WithLogger(log),
		ibl.WithPanorama(d.panorama),
		ibl.OnTransition(func(from, to ibl.State) {
			d.log.Debug().Stringer("from", from).Stringer("to", to).Msg("bake state")
		}),
	)
	if err != nil {
		d.Destroy()
		return nil, err
	}

	d.sphere = d.loadSphere(cfg.Scene.SphereModel)
	d.textures = d.loadMaterial(cfg.Scene.TextureDir)

	if d.skybox, err = opengl.NewSkybox(); err != nil {
		d.log.Warn().Err(err).Msg("skybox disabled")
		d.skybox = nil
	}
	w, h := win.GetFramebufferSize()
	if d.post, err = opengl.NewPostProcess(w, h); err != nil {
		d.log.Warn().Err(err).Msg("post-process disabled")
		d.post = nil
	} else if d.controls.Bloom {
		if err := d.post.EnableBloom(); err != nil {
			d.log.Warn().Err(err).Msg("bloom disabled")
			d.controls.Bloom = false
		}
	}
	return d, nil
}

func (d *Demo) loadPanorama(path string) ibl.Handle {
	pano, err := assets.LoadPanorama(path)
	if err != nil {
		d.log.Warn().Err(err).Msg("no panorama, image-based lighting unavailable")
		return 0
	}
	h, err := d.device.UploadPanorama(pano)
	if err != nil {
		d.log.Warn().Err(err).Msg("panorama upload failed")
		return 0
	}
	d.log.Info().Str("path", path).Int("width", pano.Width).Int("height", pano.Height).Msg("panorama loaded")
	return h
}

func (d *Demo) loadSphere(path string) *core.MeshData {
	if path != "" {
		mesh, n, err := d.cache.LoadObj(path, 1)
		if err == nil {
			d.log.Info().Str("path", path).Int("vertices", n).Msg("sphere loaded")
			return mesh
		}
		d.log.Warn().Err(err).Msg("using generated sphere")
	}
	return assets.Sphere(1, 64, 32)
}

func (d *Demo) loadMaterial(dir string) opengl.Material {
	const flags = assets.FlagFlipY | assets.FlagMipmaps
	load := func(name string, r, g, b uint8) uint32 {
		tex := d.cache.TextureOrDefault(filepath.Join(dir, name), flags, r, g, b)
		if err := opengl.UploadTexture(tex); err != nil {
			d.log.Warn().Err(err).Str("texture", name).Msg("upload failed")
			return 0
		}
		d.uploaded = append(d.uploaded, tex)
		return tex.GLID
	}
	return opengl.Material{
		AlbedoMap:    load(materialFiles.Albedo, 255, 255, 255),
		NormalMap:    load(materialFiles.Normal, 128, 128, 255),
		MetallicMap:  load(materialFiles.Metallic, 0, 0, 0),
		RoughnessMap: load(materialFiles.Roughness, 128, 128, 128),
		AOMap:        load(materialFiles.AO, 255, 255, 255),
	}
}

// Panel returns the debug panel filled by the last Update.
func (d *Demo) Panel() *Panel { return &d.panel }

// Update advances one frame: input, lazy bake, scene and post-process.
// It returns false when the user asked to quit.
func (d *Demo) Update(in core.InputState, now float64, dt float32) bool {
	edge := in.WithPrevious(d.prev)
	d.prev = in

	switch d.controls.Apply(edge) {
	case ActionQuit:
		return false
	case ActionRebake:
		d.baker.Reset()
		d.mapsBound = false
		d.renderer.SetIBL(opengl.IBLMaps{})
	}
	d.camera.Update(in, dt)

	if err := d.baker.Update(); err != nil {
		d.log.Warn().Msg("continuing without image-based lighting")
	}
	if d.baker.Ready() && !d.mapsBound {
		d.bindMaps()
	}

	d.render(in.Width, in.Height)
	d.updatePanel(now)
	return true
}

func (d *Demo) bindMaps() {
	p, err := d.baker.Products()
	if err != nil {
		return
	}
	maps := opengl.IBLMaps{PrefilterLevels: p.PrefilterLevels}
	maps.Irradiance, _ = d.device.TextureID(p.Irradiance)
	maps.Prefilter, _ = d.device.TextureID(p.Prefilter)
	maps.BRDFLUT, _ = d.device.TextureID(p.BRDFLUT)
	d.renderer.SetIBL(maps)
	d.mapsBound = true
}

func (d *Demo) render(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if d.post != nil {
		if err := d.post.Resize(width, height); err != nil {
			d.log.Warn().Err(err).Msg("post-process disabled")
			d.post.Destroy()
			d.post = nil
		}
	}
	if d.post != nil {
		d.post.Begin()
	} else {
		d.renderer.SetViewport(width, height)
	}

	view := d.camera.View()
	proj := d.camera.Projection(float32(width) / float32(height))
	d.renderer.BeginFrame(core.ColorBlack, view, proj, d.camera.Position, d.lights)

	c := &d.controls
	mat := d.textures
	mat.Textured = c.Textured
	mat.HasNormal = c.HasNormal
	mat.Albedo = c.Albedo
	mat.AO = c.AO
	for _, s := range c.Spheres() {
		mat.Metallic, mat.Roughness = s.Metallic, s.Roughness
		d.renderer.DrawMesh(d.sphere, s.Model(), mat)
	}

	if c.Skybox && d.skybox != nil {
		d.skybox.Lod = 0
		handle := d.baker.Environment()
		if d.baker.Ready() {
			p, _ := d.baker.Products()
			switch c.SkySource {
			case SkyIrradiance:
				handle = p.Irradiance
			case SkyPrefilter:
				handle = p.Prefilter
				d.skybox.Lod = float32(p.PrefilterLevels-1) / 2
			}
		}
		if id, ok := d.device.TextureID(handle); ok && d.panorama != 0 {
			d.skybox.Draw(view, proj, id, skyboxUnit)
		}
	}

	if d.post != nil {
		d.post.Exposure = c.Exposure
		if c.Bloom && !d.post.BloomEnabled {
			if err := d.post.EnableBloom(); err != nil {
				d.log.Warn().Err(err).Msg("bloom disabled")
				c.Bloom = false
			}
		}
		d.post.BloomEnabled = c.Bloom && d.post.BloomEnabled
		d.post.Blit()
	}
}

func (d *Demo) updatePanel(now float64) {
	d.fpsFrames++
	if elapsed := now - d.fpsStart; elapsed >= 0.5 {
		d.fps = float64(d.fpsFrames) / elapsed
		d.fpsFrames = 0
		d.fpsStart = now
	}
	d.panel.Fill(Stats{
		FPS:      d.fps,
		Camera:   d.camera,
		Controls: &d.controls,
		Lights:   d.lights,
		State:    d.baker.State(),
		Err:      d.baker.Err(),
		Timings:  d.baker.Timings(),
	})
}

// Destroy releases all GPU resources. Safe on a partially set-up demo.
func (d *Demo) Destroy() {
	if d.baker != nil {
		d.baker.Destroy()
	}
	if d.device != nil {
		if d.panorama != 0 {
			d.device.Release(d.panorama)
		}
		d.device.Destroy()
	}
	if d.skybox != nil {
		d.skybox.Destroy()
	}
	if d.post != nil {
		d.post.Destroy()
	}
	for _, tex := range d.uploaded {
		opengl.DeleteTexture(tex)
	}
	d.uploaded = nil
	if d.cache != nil {
		d.cache.Clear()
	}
	if d.renderer != nil {
		d.renderer.Destroy()
	}
}
