package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/openfroyo/resgen/pkg/buildhost"
	"github.com/openfroyo/resgen/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// GeneratedDirName is the generated output root relative to the build dir.
var GeneratedDirName = filepath.Join("generated", "moko")

// instanceNamespace seeds deterministic generator instance IDs.
var instanceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/openfroyo/resgen/generator-instance"))

// TaskName returns the host task name of a generator instance.
func TaskName(kind ResourceKind, target string) string {
	return "generateMR" + buildhost.Capitalize(string(kind)) + buildhost.Capitalize(target)
}

// Orchestrator wires resource generation into one project. It is single use:
// after generators are instantiated, or after a failure, it accepts no further
// work.
type Orchestrator struct {
	registry FeatureRegistry
	resolver PackageIdentityResolver

	tel     *telemetry.Telemetry
	logger  *telemetry.Logger
	metrics *telemetry.Metrics

	phase     Phase
	packaged  bool
	ext       *Extension
	genCtx    *GenerationContext
	discovery *Discovery
	instances []*GeneratorInstance
	err       error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTelemetry attaches logging, tracing and metrics to the orchestrator.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(o *Orchestrator) {
		if tel == nil {
			return
		}
		o.tel = tel
		o.logger = tel.Logger.NewComponentLogger("orchestrator")
		o.metrics = tel.Metrics
	}
}

// NewOrchestrator creates an orchestrator using the given feature registry and
// manifest resolver.
func NewOrchestrator(registry FeatureRegistry, resolver PackageIdentityResolver, opts ...Option) *Orchestrator {
	noop := telemetry.Noop()
	o := &Orchestrator{
		registry: registry,
		resolver: resolver,
		tel:      noop,
		logger:   noop.Logger,
		metrics:  noop.Metrics,
		phase:    PhaseIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Apply registers the multiplatformResources extension on the project and
// defers orchestration until the multiplatform plugin is applied and the
// project is evaluated. The returned extension may be changed by build
// scripts until then.
func (o *Orchestrator) Apply(project *buildhost.Project) (*Extension, error) {
	if err := transition(&o.phase, PhaseIdle, PhaseExtensionRegistered); err != nil {
		return nil, err
	}

	ext := DefaultExtension()
	if err := project.CreateExtension(ExtensionName, ext); err != nil {
		return nil, o.fail(NewInternalError("failed to register extension", err).
			WithCode(ErrCodeRegistrationFailed))
	}
	o.ext = ext

	if err := transition(&o.phase, PhaseExtensionRegistered, PhaseAwaitingHostPlugins); err != nil {
		return nil, err
	}

	err := project.WithPlugin(buildhost.PluginMultiplatform, func() error {
		o.logger.Debug("Multiplatform plugin applied")

		// The android library plugin is optional; without it the packaged
		// family is absent.
		if err := project.WithPlugin(buildhost.PluginAndroidLibrary, func() error {
			o.logger.Debug("Android library plugin applied")
			o.packaged = true
			return nil
		}); err != nil {
			return err
		}

		return project.AfterEvaluate(o.afterEvaluate)
	})
	if err != nil {
		return nil, o.fail(NewInternalError("failed to register project hooks", err).
			WithCode(ErrCodeRegistrationFailed))
	}

	return ext, nil
}

// Phase returns the current orchestration phase.
func (o *Orchestrator) Phase() Phase { return o.phase }

// Extension returns the registered extension, or nil before Apply.
func (o *Orchestrator) Extension() *Extension { return o.ext }

// Context returns the frozen generation context, or nil before resolution.
func (o *Orchestrator) Context() *GenerationContext { return o.genCtx }

// Discovery returns the discovered targets, or nil before resolution.
func (o *Orchestrator) Discovery() *Discovery { return o.discovery }

// Err returns the error that aborted orchestration, if any.
func (o *Orchestrator) Err() error { return o.err }

// Instances returns the generator instances in registration order.
func (o *Orchestrator) Instances() []*GeneratorInstance {
	out := make([]*GeneratorInstance, len(o.instances))
	copy(out, o.instances)
	return out
}

// afterEvaluate runs once the host finished configuring targets and source sets.
func (o *Orchestrator) afterEvaluate(ctx context.Context, project *buildhost.Project) error {
	if o.phase != PhaseAwaitingHostPlugins {
		return transition(&o.phase, PhaseAwaitingHostPlugins, PhaseConfigurationResolved)
	}

	op := telemetry.StartOperation(o.tel.WithContext(ctx), "orchestrator.orchestrate")
	err := o.orchestrate(op.Ctx, project)
	if err != nil {
		class, code := classify(err)
		op.SetErrorClass(string(class), code)
		op.End(err)
		o.metrics.RecordOrchestration("failure", op.Timer.Duration())
		return o.fail(err)
	}
	op.End(nil)

	o.metrics.RecordOrchestration("success", op.Timer.Duration())
	o.logger.Infof("Registered %d generators in %s", len(o.instances), op.Timer.Duration())
	return nil
}

func (o *Orchestrator) orchestrate(ctx context.Context, project *buildhost.Project) error {
	op := startPhase(ctx, PhaseConfigurationResolved)
	genCtx, discovery, err := o.resolve(project)
	endPhase(op, err)
	if err != nil {
		return err
	}

	if err := transition(&o.phase, PhaseAwaitingHostPlugins, PhaseConfigurationResolved); err != nil {
		return err
	}
	o.genCtx = genCtx
	o.discovery = discovery

	op = startPhase(ctx, PhaseGeneratorsInstantiated)
	err = o.instantiate(project, op.Span)
	endPhase(op, err)
	if err != nil {
		return err
	}

	return transition(&o.phase, PhaseConfigurationResolved, PhaseGeneratorsInstantiated)
}

func startPhase(ctx context.Context, phase Phase) *telemetry.InstrumentedContext {
	return telemetry.StartOperation(ctx, "orchestrator."+string(phase), telemetry.AttrPhase.String(string(phase)))
}

func endPhase(op *telemetry.InstrumentedContext, err error) {
	op.End(err)
	op.Logger.Debugf("Phase finished in %s", op.Timer.Duration())
}

// resolve validates configuration, discovers targets, resolves the packaged
// namespace when needed and freezes the generation context.
func (o *Orchestrator) resolve(project *buildhost.Project) (*GenerationContext, *Discovery, error) {
	ext := *o.ext

	if strings.TrimSpace(ext.Package) == "" {
		return nil, nil, MissingOutputPackageError()
	}

	discovery, err := Discover(project, ext, o.packaged)
	if err != nil {
		return nil, nil, err
	}

	var namespace string
	if discovery.Packaged != nil {
		namespace, err = o.resolver.Resolve(discovery.ManifestFile)
		if err != nil {
			if _, _, classified := ClassOf(err); !classified {
				err = MissingManifestError(discovery.ManifestFile, err)
			}
			return nil, nil, err
		}
		o.logger.WithFamily(string(FamilyPackaged)).Debugf("Using android package %s", namespace)
	}

	genCtx, err := NewGenerationContext(ContextParams{
		GeneratedDir:      filepath.Join(project.BuildDir, GeneratedDirName),
		ResourcesDir:      discovery.SharedResourcesDir,
		Package:           ext.Package,
		PackagedNamespace: namespace,
	})
	if err != nil {
		return nil, nil, err
	}

	return genCtx, discovery, nil
}

// instantiate builds every generator instance and its task, registers the
// tasks with the host as one batch and only then adds the output directories.
// Nothing is registered if building an instance fails or the host rejects a
// task.
func (o *Orchestrator) instantiate(project *buildhost.Project, span trace.Span) error {
	features := o.registry(o.genCtx, *o.ext)
	namespace, _ := o.genCtx.PackagedNamespace()

	var instances []*GeneratorInstance
	seen := make(map[string]bool)

	for _, target := range o.discovery.Targets() {
		name := target.Handle.Name()
		for _, feature := range features {
			gen, err := generatorFor(feature, target.Family)
			if err != nil {
				return err
			}

			kind := feature.Kind()
			key := name + "/" + string(kind)
			if seen[key] {
				return NewInternalError(fmt.Sprintf("duplicate generator for %s", key), nil).
					WithCode(ErrCodeRegistrationFailed).
					WithTarget(name)
			}
			seen[key] = true

			inst := &GeneratorInstance{
				ID:        instanceID(project.Dir, target.Family, name, kind),
				Kind:      kind,
				Family:    target.Family,
				Target:    name,
				TaskName:  TaskName(kind, name),
				Output:    o.genCtx.OutputDirs(name, kind),
				feature:   feature,
				generator: gen,
				handle:    target.Handle,
				context:   o.genCtx,
			}
			if target.Family == FamilyPackaged {
				inst.Namespace = namespace
			}
			instances = append(instances, inst)
		}
	}

	tasks := o.tasks(instances)
	if err := project.Tasks().RegisterAll(tasks...); err != nil {
		return NewInternalError("failed to register generator tasks", err).
			WithCode(ErrCodeRegistrationFailed)
	}

	for _, inst := range instances {
		if err := o.register(inst); err != nil {
			return err
		}
		o.metrics.RecordGeneratorInstantiated(string(inst.Family), string(inst.Kind))
		telemetry.AddGeneratorEvent(span, string(inst.Family), string(inst.Kind), inst.Target)
	}

	o.instances = instances
	return nil
}

// tasks builds the host task of every instance. Non-shared tasks depend on the
// shared task of the same kind.
func (o *Orchestrator) tasks(instances []*GeneratorInstance) []*buildhost.Task {
	sharedTasks := make(map[ResourceKind]string)
	tasks := make([]*buildhost.Task, 0, len(instances))
	for _, inst := range instances {
		task := &buildhost.Task{
			Name:        inst.TaskName,
			Group:       string(inst.Kind),
			Description: fmt.Sprintf("Generates %s resources for %s", inst.Kind, inst.Target),
			Outputs:     []string{inst.Output.Source, inst.Output.Resources},
			Action:      o.taskAction(inst),
		}
		if dir := o.genCtx.ResourcesDir(); dir != "" {
			task.Inputs = []string{dir}
		}
		if inst.Family == FamilyShared {
			sharedTasks[inst.Kind] = inst.TaskName
		} else if shared, ok := sharedTasks[inst.Kind]; ok {
			task.DependsOn = []string{shared}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// register adds the output directories of inst to its source set.
func (o *Orchestrator) register(inst *GeneratorInstance) error {
	registrationError := func(err error) error {
		return NewInternalError("failed to register generator", err).
			WithCode(ErrCodeRegistrationFailed).
			WithTarget(inst.Target)
	}

	if err := inst.handle.AddSourceDir(inst.Output.Source); err != nil {
		return registrationError(err)
	}
	if err := inst.handle.AddResourcesDir(inst.Output.Resources); err != nil {
		return registrationError(err)
	}

	o.logger.WithFamily(string(inst.Family)).
		WithFeature(string(inst.Kind)).
		WithTarget(inst.Target).
		Debugf("Registered task %s", inst.TaskName)
	return nil
}

func (o *Orchestrator) taskAction(inst *GeneratorInstance) buildhost.TaskAction {
	return func(ctx context.Context) error {
		return inst.Generate(ctx)
	}
}

// fail moves the orchestrator to the failed phase and drops any instance.
func (o *Orchestrator) fail(err error) error {
	o.err = err
	o.instances = nil
	if !o.phase.IsTerminal() {
		_ = transition(&o.phase, o.phase, PhaseFailed)
	}

	class, code := classify(err)
	o.metrics.RecordError(string(class), code)
	o.logger.WithError(err).WithField("class", string(class)).Error("Resource generation setup failed")
	return err
}

func instanceID(projectDir string, family BuildTargetFamily, target string, kind ResourceKind) string {
	name := strings.Join([]string{projectDir, string(family), target, string(kind)}, "|")
	return uuid.NewSHA1(instanceNamespace, []byte(name)).String()
}

// classify returns the class and code of err, treating unclassified errors
// as internal.
func classify(err error) (ErrorClass, string) {
	class, code, ok := ClassOf(err)
	if !ok {
		class = ErrorClassInternal
	}
	return class, code
}
