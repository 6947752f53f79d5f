package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	flags "github.com/jessevdk/go-flags"
	rotate "github.com/lestrrat-go/file-rotatelogs"
	"github.com/massn/envordot"
	"github.com/oklog/run"
	"go.uber.org/dig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qforge-dev/phase-engine/core"
	"github.com/qforge-dev/phase-engine/db"
	"github.com/qforge-dev/phase-engine/estimation"
	"github.com/qforge-dev/phase-engine/log"
	"github.com/qforge-dev/phase-engine/mitig"
	"github.com/qforge-dev/phase-engine/poller"
	"github.com/qforge-dev/phase-engine/qpe"
	"github.com/qforge-dev/phase-engine/report"
	"github.com/qforge-dev/phase-engine/sampling"
	"github.com/qforge-dev/phase-engine/scheduler"
	"github.com/qforge-dev/phase-engine/sim"
	"github.com/qforge-dev/phase-engine/sweep"
	"github.com/qforge-dev/phase-engine/transpiler"
)

var versionByBuildFlag string
var parser *flags.Parser
var engine *Engine

func init() {
	if err := envordot.Load(false, ".env"); err != nil {
		fmt.Printf("Not found \".env\" file. Use only environment variables. Reason:%s\n", err.Error())
	} else {
		fmt.Println("Found \".env\" file. Environment variables are preferred, " +
			"but non-conflicting variables are those in the \".env\" file.")
	}
	engine = &Engine{}
	setParser(engine)
}

type Engine struct {
	DIContainerParameters *DIContainerParameters
	Conf                  *core.Conf
}

type DIContainerParameters struct {
	DBManager  string `long:"db" description:"db" default:"memory" choice:"memory" choice:"file" env:"PHASE_ENGINE_DB_MANAGER_TYPE"`
	Transpiler string `long:"transpiler" description:"transpiler-type" default:"local" choice:"local" env:"PHASE_ENGINE_TRANSPILER_TYPE"`
	Simulator  string `long:"simulator" description:"simulator-type" default:"local" choice:"local" env:"PHASE_ENGINE_SIMULATOR_TYPE"`
	Scheduler  string `long:"scheduler" description:"scheduler-type" default:"normal" env:"PHASE_ENGINE_SCHEDULER_TYPE"`
	Reporter   string `long:"reporter" description:"reporter-type" default:"console" choice:"console" choice:"log" env:"PHASE_ENGINE_REPORTER_TYPE"`
}

func setParser(engine *Engine) {
	parser = flags.NewParser(engine, flags.Default)
	parser.ShortDescription = "phase engine"
	parser.LongDescription = "a local quantum phase estimation engine over a state-vector simulator."
	parser.AddCommand("serve", "start the engine", "watch the job dir and process submitted jobs", newServeCmd())
	parser.AddCommand("qpe", "run one phase estimation", "compose, run and report a single phase estimation circuit", newQPECmd())
}

func parse() {
	if _, err := parser.Parse(); err != nil {
		code := 1
		if fe, ok := err.(*flags.Error); ok {
			if fe.Type == flags.ErrHelp {
				code = 0
			}
		}
		if code == 1 {
			fmt.Printf("failed to parse flags, because %s\n", err)
		}
		os.Exit(code)
	}
}

func (e *Engine) provideDIContainer() (c *dig.Container, err error) {
	c = dig.New()
	err = nil
	err = c.Provide(func() (core.Simulator, error) {
		switch e.DIContainerParameters.Simulator {
		case "local":
			return &sim.LocalSimulator{}, nil
		default:
			return &sim.LocalSimulator{}, fmt.Errorf("%s is an unknown simulator", e.DIContainerParameters.Simulator)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.Transpiler, error) {
		switch e.DIContainerParameters.Transpiler {
		case "local":
			return &transpiler.LocalTranspiler{}, nil
		default:
			return &transpiler.LocalTranspiler{}, fmt.Errorf("%s is an unknown transpiler", e.DIContainerParameters.Transpiler)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() core.Scheduler { return &scheduler.NormalScheduler{} })
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.DBManager, error) {
		switch e.DIContainerParameters.DBManager {
		case "memory":
			return &core.MemoryDB{}, nil
		case "file":
			return &db.FileDB{}, nil
		default:
			return &core.MemoryDB{}, fmt.Errorf("%s is an unknown DB", e.DIContainerParameters.DBManager)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	err = c.Provide(func() (core.Reporter, error) {
		switch e.DIContainerParameters.Reporter {
		case "console":
			return report.NewConsoleReporter(os.Stdout), nil
		case "log":
			return &report.LogReporter{}, nil
		default:
			return report.NewConsoleReporter(os.Stdout), fmt.Errorf("%s is an unknown reporter", e.DIContainerParameters.Reporter)
		}
	})
	if err != nil {
		return &dig.Container{}, err
	}
	return
}

func (e *Engine) startCore(conf *core.Conf) error {
	core.NewJobManager(
		&core.NormalJob{},
		&sampling.SamplingJob{},
		&estimation.PhaseEstimationJob{},
		&sweep.SweepJob{},
	)
	err := core.GetSystemComponents().StartContainer()
	if err != nil {
		return err
	}
	core.SetInfo(conf)
	return nil
}

func zapLogger(conf *core.Conf) (*zap.Logger, error) {
	var encoder zapcore.Encoder
	if conf.DevMode {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		c := zap.NewProductionEncoderConfig()
		c.EncodeTime = zapcore.ISO8601TimeEncoder //Not use UnixTime
		c.TimeKey = "timestamp"
		encoder = zapcore.NewJSONEncoder(c)
	}
	var level zap.AtomicLevel
	switch conf.LogLevel {
	case "debug":
		level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	cores := []zapcore.Core{}
	if conf.EnableFileLog {
		rotator, err := makeRotator(conf.LogDir, conf.LogRotationMaxDays)
		if err != nil {
			return &zap.Logger{}, err
		}
		syncer := zapcore.AddSync(rotator)
		rotateCore := zapcore.NewCore(
			encoder,
			syncer,
			level)
		cores = append(cores, rotateCore)
	}
	if !conf.DisableStdoutLog {
		stdoutCore := zapcore.NewCore(
			encoder,
			zapcore.Lock(os.Stdout),
			level)
		cores = append(cores, stdoutCore)
	}
	tee := zapcore.NewTee(cores...)
	return zap.New(tee, zap.AddCaller()), nil
}

func makeRotator(dirPath string, rotationMaxDays int) (*rotate.RotateLogs, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return &rotate.RotateLogs{}, fmt.Errorf("directory:%s is not found", dirPath)
	}
	if info.Mode().Perm()&(1<<uint(7)) == 0 {
		return &rotate.RotateLogs{}, fmt.Errorf("%s is not a writable directory", dirPath)
	}
	rotator, err := rotate.New(
		filepath.Join(dirPath, "phased-%Y-%m-%d.log"),
		rotate.WithMaxAge(time.Duration(rotationMaxDays)*24*time.Hour),
		rotate.WithRotationTime(time.Hour))
	if err != nil {
		return &rotate.RotateLogs{}, err
	}
	return rotator, nil
}

func main() {
	parse()
}

type serveCmd struct{}

func newServeCmd() *serveCmd {
	return &serveCmd{}
}

func (c *serveCmd) Execute(args []string) error {
	logger := setZap(engine.Conf)
	defer logger.Sync()

	core.ResetSetting()
	registerSetting()
	if err := core.ParseSettingFromPath(engine.Conf.SettingPath); err != nil {
		zap.L().Error(fmt.Sprintf("failed to parse settings/reason:%s", err))
		return err
	}

	s := setupSystemComponents(engine.Conf)
	defer s.TearDown()
	// runner setups below read the watch dir from here
	core.SetInfo(engine.Conf)

	im := &core.ImplMaps{
		PeriodicTaskImplMap: core.PeriodicTaskImplMap{
			poller.PollerTaskName:  &poller.Poller{},
			log.VersionLogTaskName: &log.VersionLogTaskImpl{},
			log.MetricsLogTaskName: &log.MetricsLogTaskImpl{},
		},
		InternalJobServerImplMap: core.InternalJobServerImplMap{
			poller.WatcherServerName: &poller.Watcher{},
		},
	}
	rc, err := core.NewRunContextWithSettingPath(engine.Conf.SettingPath, im)
	if err != nil {
		zap.L().Error(fmt.Sprintf("failed to setup run context/reason:%s", err.Error()))
		return err
	}

	if err := engine.startCore(engine.Conf); err != nil {
		zap.L().Error(fmt.Sprintf("failed to start the core/reason:%s", err.Error()))
		return err
	}

	zap.L().Debug("Setting up run-group")
	if err := c.setupRunGroup(rc); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to setup run group. Reason:%s", err))
		return err
	}

	if err := rc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "execution error:%v\n", err)
		os.Exit(1)
	}

	return nil
}

func (c *serveCmd) setupRunGroup(rc *core.RunContext) error {
	rc.Add(
		run.SignalHandler(
			rc.Context,
			os.Interrupt))
	core.SetRunContext(rc)
	return nil
}

type qpeCmd struct {
	AncillaQubits     int     `long:"ancillas" description:"number of ancilla qubits" default:"3"`
	BasePhase         float64 `long:"phase" description:"phase of the estimated unitary in radians" default:"0.7853981633974483"`
	PrepareEigenstate bool    `long:"prepare-eigenstate" description:"flip the eigenstate qubit to |1>"`
	Shots             int     `long:"shots" description:"number of shots" default:"1024"`
	OptimizationLevel int     `long:"opt-level" description:"transpiler optimization level" default:"1"`
	Mitigate          bool    `long:"mitigate" description:"apply pseudo inverse readout mitigation"`
}

func newQPECmd() *qpeCmd {
	return &qpeCmd{}
}

func (c *qpeCmd) Execute(args []string) error {
	logger := setZap(engine.Conf)
	defer logger.Sync()

	core.ResetSetting()
	registerSetting()
	if err := core.ParseSettingFromPath(engine.Conf.SettingPath); err != nil {
		zap.L().Debug(fmt.Sprintf("running without a setting file/reason:%s", err))
	}

	s := setupSystemComponents(engine.Conf)
	defer s.TearDown()

	if err := engine.startCore(engine.Conf); err != nil {
		zap.L().Error(fmt.Sprintf("failed to start the core/reason:%s", err.Error()))
		return err
	}

	spec := &poller.JobSpec{
		JobType: estimation.PHASE_ESTIMATION_JOB,
		Shots:   c.Shots,
		Seed:    engine.Conf.Seed,
		Transpiler: &core.TranspilerConfig{
			OptimizationLevel: c.OptimizationLevel,
		},
		QPE: &qpe.Params{
			AncillaQubits:     c.AncillaQubits,
			BasePhase:         c.BasePhase,
			PrepareEigenstate: c.PrepareEigenstate,
		},
	}
	if c.Mitigate {
		spec.Mitigation = &mitig.MitigationInfo{Readout: mitig.ReadoutPseudoInverse}
	}
	param, err := spec.ToJobParam(".")
	if err != nil {
		return err
	}

	jc, err := core.NewJobContext()
	if err != nil {
		return err
	}
	go drainDBChan(jc)
	job, err := core.GetJobManager().NewJobWithValidation(param, jc)
	if err != nil {
		return err
	}
	job.JobData().Status = core.READY

	job.PreProcess()
	if !job.IsFinished() {
		job.JobData().Status = core.RUNNING
		job.Process()
	}
	if !job.IsFinished() {
		job.PostProcess()
	}

	return s.Invoke(
		func(r core.Reporter) error {
			return r.Report(job)
		})
}

// the one-shot command bypasses the scheduler, so nothing consumes
// DB updates the components may emit
func drainDBChan(jc *core.JobContext) {
	for range jc.DBChan {
	}
}

func setZap(conf *core.Conf) *zap.Logger {
	logger, err := zapLogger(conf)
	if err != nil {
		fmt.Printf("Failed to setup logger. Reason:%s\n", err)
		panic(err)
	}
	zap.ReplaceGlobals(logger)
	zap.L().Info("Starting logger")
	zap.L().Info(fmt.Sprintf("DevMode is %t", conf.DevMode))
	return logger
}

func setupSystemComponents(conf *core.Conf) *core.SystemComponents {
	core.SetVersion(conf, versionByBuildFlag)
	zap.L().Debug(fmt.Sprintf("Providing DI Container with parameters %+v", engine.DIContainerParameters))

	container, err := engine.provideDIContainer()
	if err != nil {
		zap.L().Error(fmt.Sprintf("Failed to setting up DI-Container. Reason:%s", err.Error()))
		panic(err)
	}
	zap.L().Debug("Setting up System Components")
	s := core.NewSystemComponents(container)
	if err := s.Setup(conf); err != nil {
		zap.L().Error(fmt.Sprintf("Failed to setting up Container. Reason:%s", err.Error()))
		panic(err)
	}
	return s
}

func registerSetting() {
	core.RegisterSetting("backend", sim.NewBackendSetting())
}
