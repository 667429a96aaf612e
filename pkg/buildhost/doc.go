// Package buildhost models the host build that resgen plugs into.
//
// A Project is configured in two steps. During configuration, plugins are
// applied, extensions are created and build scripts declare targets and
// source sets. Evaluate then runs the configure actions followed by every
// after-evaluate hook, at which point the target and source set graph is
// final. Plugins that need the final graph register an AfterEvaluate hook
// from inside a WithPlugin continuation, mirroring the lazy configuration
// model of multiplatform build systems.
//
// # Targets
//
// The multiplatform extension owns the declared targets. Each target has a
// platform tag, an optional native family, and an ordered set of
// compilations, each bound to a default SourceSet. The android library
// extension owns a separate set of AndroidSourceSet values carrying the
// manifest file and the platform resource bucket.
//
// # Tasks
//
// Work registered against the project is expressed as Task values. A
// TaskGraph orders tasks by their declared dependencies and an Executor runs
// each level of the graph on a bounded worker pool.
package buildhost
