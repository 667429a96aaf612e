// Package engine provides the generation orchestrator of resgen.
//
// # Overview
//
// The orchestrator turns one declarative resource set into one generator per
// (resource kind, target family, target). It hooks into the host project in
// three steps:
//
//  1. Apply registers the multiplatformResources extension with defaults.
//  2. Once the multiplatform plugin is applied, an after-evaluate hook is
//     registered. The android library plugin is optional.
//  3. After evaluation, configuration is resolved and frozen into a
//     GenerationContext, then generators are instantiated and registered as
//     host tasks.
//
// # Target Families
//
//   - Shared: the source set named by Extension.SourceSetName. Always present.
//   - Packaged: the android main source set, present iff the android library
//     plugin is applied. Its namespace comes from the android manifest.
//   - Native: the main compilation of every iOS target, in declaration order.
//
// Families are instantiated in this order, and features in registry order
// (strings, plurals, images, fonts).
//
// # Phases
//
// Orchestration follows a validated state machine:
//
//	idle -> extension_registered -> awaiting_host_plugins ->
//	configuration_resolved -> generators_instantiated
//
// Any failure moves the orchestrator to the terminal failed phase with no
// generator registered.
//
// # Error Classification
//
// Errors are classified so callers can report the failing precondition:
//
//   - Configuration: unset output package, unknown shared source set
//   - Manifest: unreadable or malformed manifest, missing package attribute
//   - Discovery: a required target is not declared by the host
//   - Internal: misuse of the orchestrator or a host registration failure
//
// Use errors.Is with the sentinels to match a specific failure:
//
//	if errors.Is(err, engine.ErrMissingPackageIdentity) {
//	    // point the user at AndroidManifest.xml
//	}
package engine
