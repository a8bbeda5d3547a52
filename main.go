package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"git.fiblab.net/general/common/v2/mongoutil"
	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/flocksim-go/clock"
	"github.com/tsinghua-fib-lab/flocksim-go/entity/road"
	"github.com/tsinghua-fib-lab/flocksim-go/task"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/config"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/input"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/output"
	"github.com/tsinghua-fib-lab/flocksim-go/utils/randengine"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// 模拟任务名，写入输出记录
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "flocksim")
)

// loadConfig 从文件或Base64数据读取配置
func loadConfig() *config.RuntimeConfig {
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Info("no config specified, use default config")
	}
	c := config.Default()
	if file != nil {
		if c, err = config.Load(file); err != nil {
			log.Panicf("config file load err: %v", err)
		}
	}
	rc, err := config.NewRuntimeConfig(c)
	if err != nil {
		log.Panicf("invalid config: %v", err)
	}
	log.Infof("%+v", c)
	return rc
}

// newRecorder 按输出配置创建MongoDB写入器，未配置输出时返回nil
func newRecorder(c config.Config) (*output.Recorder, *mongo.Client) {
	if c.Output.Metrics == nil && c.Output.Result == nil {
		return nil, nil
	}
	client := mongoutil.NewClient(c.OutputURI())
	var metrics, result *mongo.Collection
	if c.Output.Metrics != nil {
		metrics = mongoutil.GetMongoColl(client, *c.Output.Metrics)
	}
	if c.Output.Result != nil {
		result = mongoutil.GetMongoColl(client, *c.Output.Result)
	}
	return output.NewRecorder(*job, metrics, result, c.Output.Interval), client
}

// serveRPC 在listen上启动控制服务
func serveRPC(listen string, runner *task.Runner) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(task.NewHandler(runner))
	server := &http.Server{Addr: listen, Handler: mux}
	go func() {
		log.Infof("rpc server listening at %s", listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("rpc server: %v", err)
		}
	}()
	return server
}

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	rc := loadConfig()
	c := rc.All

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	networks := func() (*road.Network, error) {
		return input.LoadNetwork(ctx, c, randengine.New(rc.C.Seed))
	}
	if rc.C.Compare {
		ab, err := task.Compare(ctx, rc.Simulation, networks)
		if err != nil {
			log.Panicf("a/b comparison failed: %v", err)
		}
		log.Infof("a/b comparison: flocking speed %.2f m/s vs %.2f m/s, fuel %.2f L vs %.2f L, improvement %.1f%%",
			ab.Flocking.Final.AverageSpeed, ab.Baseline.Final.AverageSpeed,
			ab.Flocking.Final.TotalFuel, ab.Baseline.Final.TotalFuel, ab.Comparison.Improvement)
		return
	}

	network, err := networks()
	if err != nil {
		log.Panicf("failed to load network: %v", err)
	}
	var observers []task.Observer
	recorder, client := newRecorder(c)
	if recorder != nil {
		defer client.Disconnect(context.Background())
		observers = append(observers, recorder)
	}

	var scheduler clock.Scheduler
	var headless *clock.SyncScheduler
	if rc.C.Realtime {
		dt := rc.Simulation.Step
		if dt <= 0 {
			dt = task.DefaultStep
		}
		scheduler = clock.NewTimerScheduler(time.Duration(dt / rc.C.Speedup * float64(time.Second)))
	} else {
		headless = clock.NewSyncScheduler()
		scheduler = headless
	}

	runner := task.NewRunner()
	if c.RPC.Listen != "" {
		server := serveRPC(c.RPC.Listen, runner)
		defer server.Shutdown(context.Background())
	}
	sim := task.New(rc.Simulation, network, scheduler, observers...)
	if err := runner.Start(sim); err != nil {
		log.Panicf("failed to start simulation: %v", err)
	}
	stop := context.AfterFunc(ctx, runner.Stop)
	defer stop()
	if headless != nil {
		headless.Run()
	}
	<-sim.Done()

	if sim.Status() == task.StatusStopped && recorder != nil {
		if err := recorder.Flush(context.Background()); err != nil {
			log.Errorf("flush metrics: %v", err)
		}
	}
	result, ok := sim.Result()
	if !ok {
		log.Warn("simulation produced no result")
		return
	}
	final := result.Final
	log.Infof("run %s (%s, weather=%s, flocking=%v): %.1fs simulated, %d active vehicles, %d trips",
		result.ID, result.Scenario, result.Weather, result.Flocking, result.Duration,
		final.ActiveVehicles, final.CompletedTrips)
	log.Infof("avg speed %.2f m/s, avg wait %.1fs, fuel %.2f L, CO2 %.2f kg, congestion %.2f",
		final.AverageSpeed, final.AverageWaitTime, final.TotalFuel, final.Emissions, final.CongestionLevel)
	log.Infof("improvement %.1f%% (speed %.1f%%, fuel %.1f%%, wait %.1f%%), projected annual saving %.0f for %d vehicles",
		result.Comparison.Improvement, result.Comparison.SpeedImprovement, result.Comparison.FuelSaving,
		result.Comparison.WaitReduction, result.ROI.CostSaved, result.ROI.FleetSize)
}
