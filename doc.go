// Package sprite renders textured sprites from a scene on a gogpu/wgpu
// HAL device.
//
// # Overview
//
// Every frame runs four stages in order:
//
//   - Extract snapshots each visible sprite: its world transform packed
//     into three instance rows, its depth, and its texture handle.
//   - Queue fills every view's phase with one draw item per sprite the
//     view can see, sorted by depth.
//   - Prepare builds the per-sprite instance buffer and texture bind group,
//     and the per-view uniform. Sprites whose texture is not yet resident
//     are deferred to a later frame.
//   - Encode runs each draw item's step sequence into a render pass:
//     pipeline, view bind group, sprite bind group, buffers, draw.
//
// All sprites share one unit quad uploaded at startup. Pipelines are
// specialized per sample count and target format and cached by key.
//
// # Quick Start
//
//	r, err := sprite.NewRenderer(provider)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Destroy()
//
//	world := scene.NewWorld()
//	tex := assets.HandleFromPath("ship.png")
//	world.SpawnSprite(scene.FromTranslation(10, 20, 0), true, scene.Sprite{Texture: tex})
//	_ = r.UploadTexture(tex, img)
//
//	r.Phases().Insert(1)
//	views := []render.View{render.OrthographicView(1, 800, 600, -100, 100, render.AllEntities{})}
//	target, _ := r.NewTarget(800, 600)
//	stats, err := r.RenderFrame(world, views, target)
//
// # Diagnostics
//
// Missing phases, unprepared sprites and missing geometry never fail a
// frame. They are logged through the logger installed with SetLogger and
// counted in FrameStats.
package sprite
