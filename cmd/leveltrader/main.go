// Command leveltrader replays a scenario through the level engine against a
// paper gateway and writes the produced events as JSON lines to stdout.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/evdnx/levelbot/config"
	"github.com/evdnx/levelbot/engine"
	"github.com/evdnx/levelbot/events"
	"github.com/evdnx/levelbot/executor"
	"github.com/evdnx/levelbot/logger"
)

func main() {
	scenarioPath := flag.String("scenario", "scenario.json", "replay scenario (JSON)")
	envFile := flag.String("env", ".env", "optional env file with LT_* settings")
	addr := flag.String("http", "", "serve /metrics, /healthz and /levels on this address and keep running")
	logLevel := flag.String("log-level", "info", "zap log level")
	flag.Parse()

	log, err := logger.NewZapLogger(*logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	if err := run(*scenarioPath, *envFile, *addr, log); err != nil {
		log.Error("leveltrader_failed", logger.Err(err))
		os.Exit(1)
	}
}

func run(scenarioPath, envFile, addr string, log logger.Logger) error {
	cfg, err := config.FromEnv(envFile)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	f, err := os.Open(scenarioPath)
	if err != nil {
		return err
	}
	sc, err := DecodeScenario(f)
	f.Close()
	if err != nil {
		return err
	}
	cfg.Symbol = sc.Symbol.Name

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mu := &sync.Mutex{}
	runner, eng, err := newRunner(cfg, sc, mu, os.Stdout, log)
	if err != nil {
		return err
	}

	var srv *http.Server
	if addr != "" {
		srv = &http.Server{
			Addr:         addr,
			Handler:      newRouter(eng, mu),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		}
		go func() {
			log.Info("http_listening", logger.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http_failed", logger.Err(err))
			}
		}()
	}

	if err := runner.Run(ctx, sc.Interval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	report(runner, log)

	if srv == nil {
		return nil
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRunner(cfg config.EngineConfig, sc *Scenario, mu *sync.Mutex, out io.Writer, log logger.Logger) (*Runner, *engine.Engine, error) {
	sym := sc.SymbolInfo()
	paper := executor.NewPaperGateway(sym, sc.Balance, sc.Leverage, log)
	mkt := &replayMarket{
		sym:    sym,
		paper:  paper,
		bars:   sc.Bars,
		daily:  sc.Daily,
		spread: sym.FromPips(sc.Spread),
	}
	sink := events.NewJSONLines(out, func(err error) {
		log.Warn("event_write_failed", logger.Err(err))
	})
	eng, err := engine.New(cfg, engine.Deps{
		Market:   mkt,
		Gateway:  paper,
		Levels:   sc.LevelSource(),
		Calendar: sc,
		Sink:     sink,
		Logger:   log,
	})
	if err != nil {
		return nil, nil, err
	}
	return &Runner{mu: mu, eng: eng, mkt: mkt, paper: paper}, eng, nil
}

func report(r *Runner, log logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for _, c := range r.paper.Closed() {
		total += c.Profit
	}
	acct := r.paper.Account()
	log.Info("replay_finished",
		logger.Int("ticks", r.ticks),
		logger.Int("closed", len(r.paper.Closed())),
		logger.Int("open", len(r.paper.Positions())),
		logger.Float64("realised", total),
		logger.Float64("balance", acct.Balance),
		logger.Float64("equity", acct.Equity))
}
