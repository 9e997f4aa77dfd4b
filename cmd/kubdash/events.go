package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/kubdash/kubdash/pkg/metrics"
	"github.com/kubdash/kubdash/pkg/models"
	"github.com/kubdash/kubdash/pkg/notify"
)

func newEventsCmd(conf *configFile) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Backend event notifications",
	}

	var metricsAddr string
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll for event notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				if !a.cfg.Notify.Enabled {
					return errors.New("notifications are disabled in config")
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				addr := metricsAddr
				if addr == "" {
					addr = a.cfg.Metrics.Listen
				}
				if addr != "" {
					go serveMetrics(ctx, addr, a)
				}

				p := &notify.Poller{
					Source:   a.client,
					Feed:     &notify.Feed{},
					Interval: a.cfg.Notify.Interval,
					OnUpdate: printNotifications,
				}
				fmt.Printf("Watching %s every %s (Ctrl-C to stop)\n", a.cfg.APIURL, a.cfg.Notify.Interval)
				if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			})
		},
	}
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	topicsCmd := &cobra.Command{
		Use:   "topics",
		Short: "List broker topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				topics, err := a.client.Topics(cmd.Context())
				if err != nil {
					return err
				}
				for _, t := range topics {
					fmt.Println(t)
				}
				return nil
			})
		},
	}

	var key string
	sendCmd := &cobra.Command{
		Use:   "send <topic> <json-object>",
		Short: "Publish a message to a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var msg map[string]any
			if err := json.Unmarshal([]byte(args[1]), &msg); err != nil {
				return fmt.Errorf("message must be a JSON object: %w", err)
			}
			return withApp(conf, func(a *app) error {
				res, err := a.client.SendMessage(cmd.Context(), args[0], msg, key)
				if err != nil {
					return err
				}
				fmt.Println(res.Message)
				return nil
			})
		},
	}
	sendCmd.Flags().StringVar(&key, "key", "", "partition key")

	testCmd := &cobra.Command{
		Use:   "test [topic] [message]",
		Short: "Ask the backend to publish a test message",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var topic, message string
			if len(args) > 0 {
				topic = args[0]
			}
			if len(args) > 1 {
				message = args[1]
			}
			return withApp(conf, func(a *app) error {
				res, err := a.client.SendTestMessage(cmd.Context(), topic, message)
				if err != nil {
					return err
				}
				fmt.Println(res.Message)
				return nil
			})
		},
	}

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Check broker health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(conf, func(a *app) error {
				h := a.client.Health(cmd.Context())
				if !h.Healthy() {
					return fmt.Errorf("broker %s: %s", h.Status, h.Error)
				}
				fmt.Printf("Broker %s, %d topics\n", h.Broker, h.TopicsCount)
				return nil
			})
		},
	}

	cmd.AddCommand(watchCmd, topicsCmd, sendCmd, testCmd, healthCmd)
	return cmd
}

func printNotifications(ns []models.Notification) {
	for _, n := range ns {
		fmt.Printf("%s  %s\n", n.Timestamp.Local().Format("15:04"), n.Message)
	}
}

func serveMetrics(ctx context.Context, addr string, a *app) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics.NewCacheCollector("kubdash", a.cache))

	srv := &http.Server{Addr: addr, Handler: metrics.Handler(reg)}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutCtx)
	}()

	log.WithField("addr", addr).Info("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("metrics server")
	}
}
