// Package config loads resgen project descriptors and materializes them into
// host projects with resource generation applied.
//
// # Overview
//
// A project is described by resgen.cue or resgen.yaml in the project
// directory. The descriptor names the project, the host plugins to apply, the
// targets to declare and the multiplatformResources settings:
//
//	name:    "shared"
//	plugins: ["multiplatform", "android-library"]
//	resources: "package": "com.example.mr"
//	targets: [
//		{name: "android", platform:  "androidJvm"},
//		{name: "iosArm64", platform: "native", family: "ios"},
//	]
//	build_script: "build.star"
//
// # Validation
//
// CUE descriptors are unified with the built-in #Project schema, so unknown
// fields and invalid values are reported with file positions. YAML
// descriptors are decoded strictly and checked against the same schema.
// Both are then validated with struct tags (go-playground/validator).
// Failures are returned as a *DescriptorError holding ValidationError items.
//
// # Build Scripts
//
// The optional Starlark build script runs as a configure action while the
// project is evaluated, before resource orchestration resolves its
// configuration. It sees project_name, project_dir, plugins, targets and
// defaults, and may export the globals package, base_localization_region and
// source_set_name to override the extension settings.
//
// # Usage Example
//
//	d, err := config.NewLoader().Load(ctx, ".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	build, err := config.BuildProject(d, config.WithTelemetry(tel))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := build.Configure(ctx); err != nil {
//	    log.Fatal(err)
//	}
package config
