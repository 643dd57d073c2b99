package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ftahirops/drivelog/model"
	"github.com/ftahirops/drivelog/store"
)

// DefaultMaxAttempts is one probe plus one retry. A drive in low-power mode
// may fail to open until the first probe has woken it. It is also the upper
// bound: a drive is never invoked more often than this in one run.
const DefaultMaxAttempts = 2

// Invoker runs the diagnostic tool for one drive.
type Invoker interface {
	Invoke(ctx context.Context, target model.DriveTarget) (model.Report, error)
}

// PipelineConfig holds everything a run needs. Zero values fall back to
// the defaults in this package.
type PipelineConfig struct {
	Invoker      Invoker
	Store        store.Store
	OwnerHost    string
	IdentityKeys []string
	BriefKeys    []string
	DetailRules  []model.DetailRule
	MaxAttempts  int
	Logger       *slog.Logger
	Now          func() time.Time
}

// DriveResult is the outcome of one drive in a run.
type DriveResult struct {
	Target        model.DriveTarget
	DeviceName    string // as reported by smartctl, else Target.Device
	Attempts      int
	Status        model.RunStatus
	Flags         model.StatusFlags
	Messages      []string
	Generation    int
	NewGeneration bool
	Observation   *model.Observation
	Err           error
}

// Recorded reports whether an observation was written for the drive.
func (r DriveResult) Recorded() bool { return r.Observation != nil }

// RunSummary collects the per-drive results of one run, in list order.
type RunSummary struct {
	OwnerHost string
	Started   time.Time
	Finished  time.Time
	Drives    []DriveResult
}

// Recorded counts drives with a written observation.
func (s RunSummary) Recorded() int {
	n := 0
	for _, d := range s.Drives {
		if d.Recorded() {
			n++
		}
	}
	return n
}

// Err joins the per-drive errors, nil if every drive was recorded.
func (s RunSummary) Err() error {
	var errs []error
	for _, d := range s.Drives {
		if d.Err != nil {
			errs = append(errs, d.Err)
		}
	}
	return errors.Join(errs...)
}

// Pipeline collects and persists drive telemetry, one drive at a time.
type Pipeline struct {
	invoker      Invoker
	host         string
	identityKeys []string
	briefKeys    []string
	detailRules  []model.DetailRule
	maxAttempts  int
	log          *slog.Logger
	now          func() time.Time

	tracker  *IdentityTracker
	recorder *ObservationRecorder
}

// NewPipeline builds a pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	p := &Pipeline{
		invoker:      cfg.Invoker,
		host:         cfg.OwnerHost,
		identityKeys: cfg.IdentityKeys,
		briefKeys:    cfg.BriefKeys,
		detailRules:  cfg.DetailRules,
		maxAttempts:  cfg.MaxAttempts,
		log:          cfg.Logger,
		now:          cfg.Now,
	}
	if p.identityKeys == nil {
		p.identityKeys = DefaultIdentityKeys
	}
	if p.briefKeys == nil {
		p.briefKeys = DefaultBriefKeys
	}
	if p.detailRules == nil {
		p.detailRules = DefaultDetailRules
	}
	if p.maxAttempts < 1 || p.maxAttempts > DefaultMaxAttempts {
		p.maxAttempts = DefaultMaxAttempts
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.tracker = NewIdentityTracker(cfg.Store, p.now)
	p.recorder = NewObservationRecorder(cfg.Store, p.now)
	return p
}

// Run processes targets sequentially in order. Failures of a single drive
// are recorded in its DriveResult and do not stop the run. A
// *PersistenceError stops the run and is returned along with the results
// gathered so far; drives recorded before it stay recorded.
func (p *Pipeline) Run(ctx context.Context, targets []model.DriveTarget) (RunSummary, error) {
	sum := RunSummary{OwnerHost: p.host, Started: p.now()}
	if len(targets) == 0 {
		sum.Finished = sum.Started
		return sum, ErrNoDrives
	}

	for _, target := range targets {
		res, err := p.collect(ctx, target)
		sum.Drives = append(sum.Drives, res)
		if err != nil {
			sum.Finished = p.now()
			p.log.Error("aborting run", "device", res.DeviceName, "err", err)
			return sum, err
		}
	}
	sum.Finished = p.now()
	return sum, nil
}

// collect runs one drive through invoke, decode, project, reconcile and
// record. The returned error is non-nil only for persistence failures.
func (p *Pipeline) collect(ctx context.Context, target model.DriveTarget) (DriveResult, error) {
	res := DriveResult{Target: target, DeviceName: target.Device}
	log := p.log.With("device", target.Device, "kind", target.Kind)

	var (
		report model.Report
		hdr    model.ReportHeader
	)
	for res.Attempts < p.maxAttempts {
		res.Attempts++
		r, err := p.invoker.Invoke(ctx, target)
		if err != nil {
			log.Error("smartctl invocation failed", "attempt", res.Attempts, "err", err)
			res.Err = err
			return res, nil
		}
		h, err := r.Header()
		if err != nil {
			log.Error("unusable smartctl report", "attempt", res.Attempts, "err", err)
			res.Err = err
			return res, nil
		}
		report, hdr = r, h
		if !DecodeStatus(uint8(h.Smartctl.ExitStatus)).OpenFailed {
			break
		}
		log.Warn("device open failed", "attempt", res.Attempts, "status", h.Smartctl.ExitStatus.String())
	}

	res.Status = hdr.Smartctl.ExitStatus
	res.Flags = DecodeStatus(uint8(res.Status))
	for _, m := range hdr.Smartctl.Messages {
		res.Messages = append(res.Messages, m.String)
	}
	if hdr.Device.Name != "" {
		res.DeviceName = hdr.Device.Name
	}

	if res.Flags.ParseError {
		log.Error("smartctl failed", "exit_status", uint8(res.Status))
		for _, m := range res.Messages {
			log.Error("smartctl message", "message", m)
		}
		res.Err = &DeviceFatalError{Device: target.Device, Status: uint8(res.Status), Messages: res.Messages}
		return res, nil
	}

	kind := hdr.Device.Type
	if kind == "" {
		kind = target.Kind
	}
	identity := Project(report, p.identityKeys)
	brief := Project(report, p.briefKeys)
	detail := ProjectByType(report, kind, p.detailRules)

	gen, created, err := p.tracker.Reconcile(ctx, p.host, res.DeviceName, identity)
	if err != nil {
		return p.fail(log, res, err)
	}
	res.Generation, res.NewGeneration = gen, created
	if created {
		log.Info("new drive generation", "generation", gen)
	}

	obs, err := p.recorder.Record(ctx, p.host, res.DeviceName, gen, brief, detail)
	if err != nil {
		return p.fail(log, res, err)
	}
	res.Observation = &obs
	log.Debug("observation recorded", "generation", gen, "status", res.Status.String())
	return res, nil
}

// fail records err on the drive. Only persistence errors escape the drive.
func (p *Pipeline) fail(log *slog.Logger, res DriveResult, err error) (DriveResult, error) {
	res.Err = err
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return res, err
	}
	log.Error("drive not recorded", "err", err)
	return res, nil
}
