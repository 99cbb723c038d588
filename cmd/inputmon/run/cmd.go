package run

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/temoto/alive/v2"
	"github.com/temoto/inputmon/cmd/inputmon/subcmd"
	"github.com/temoto/inputmon/config"
	"github.com/temoto/inputmon/input"
	"github.com/temoto/inputmon/log2"
	"github.com/temoto/inputmon/monitor"
	"github.com/temoto/inputmon/notify"
	"github.com/temoto/inputmon/tele"
	"golang.org/x/sys/unix"
)

const modName = "run"

var Mod = subcmd.Mod{Name: modName, Usage: "monitor input, log and publish notifications", Main: Main}

func Main(ctx context.Context, c *config.Config) error {
	log := log2.ContextValueLogger(ctx)
	log.Debugf("config=%+v", c)
	monitor.ForwardErrors(log, func(s string) { subcmd.SdNotify(s) })

	source, err := subcmd.OpenSource(c, log)
	if err != nil {
		return errors.Annotate(err, "open source")
	}

	a := alive.NewAlive()
	defer a.Stop()
	dispatch := notify.NewDispatch(log.Clone(log2.LInfo), a.StopChan())
	go dispatch.Run()
	dispatch.SubscribeFunc("log", func(n input.Notification) {
		if n.Kind.IsMotion() {
			log.Debugf("input %s", n)
		} else {
			log.Infof("input %s", n)
		}
	}, a.StopChan())

	teler := tele.New()
	if err = teler.Init(ctx, log.Clone(log2.LInfo), c.Tele, source.String()); err != nil {
		_ = source.Close()
		return errors.Annotate(err, "tele init")
	}
	defer teler.Close()
	if c.Tele.Enabled {
		dispatch.SubscribeSink("tele", teler, a.StopChan())
	}

	var metricsServer *http.Server
	if c.Metrics.Listen != "" {
		metricsServer = serveMetrics(log, c.Metrics.Listen)
	}

	mon := monitor.New(log, source, dispatch)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(sigs)
	err = supervise(log, mon, sigs, func() {
		subcmd.SdNotify(daemon.SdNotifyReady)
		log.Infof("monitor source=%s running", source)
	})
	log.Infof("monitor stat %s tele %s", mon.Stat(), teler.Stat())

	if metricsServer != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if serr := metricsServer.Shutdown(shutCtx); serr != nil {
			log.Errorf("metrics shutdown err=%v", serr)
		}
	}
	return err
}

// supervise runs mon until a signal or worker exit. Source is closed on every path.
func supervise(log *log2.Log, mon *monitor.Monitor, sigs <-chan os.Signal, ready func()) error {
	if err := mon.Start(); err != nil {
		mon.Stop()
		return errors.Annotate(err, "monitor start")
	}
	ready()
	select {
	case sig := <-sigs:
		log.Infof("signal=%v stopping", sig)
		subcmd.SdNotify(daemon.SdNotifyStopping)
	case <-mon.Done():
	}
	mon.Stop()
	return mon.Wait()
}

func serveMetrics(log *log2.Log, listen string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: listen, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Infof("metrics listen=%s", listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("metrics listen=%s err=%v", listen, err)
		}
	}()
	return srv
}
