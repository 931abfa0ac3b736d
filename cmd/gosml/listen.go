package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/d21d3q/gosml/internal/agent"
	"github.com/d21d3q/gosml/internal/config"
	"github.com/d21d3q/gosml/internal/mqtt"
	"github.com/d21d3q/gosml/internal/reading"
	"github.com/d21d3q/gosml/internal/storage"
	"github.com/d21d3q/gosml/internal/transport"
)

var (
	listenCmd = &cobra.Command{
		Use:   "listen",
		Short: "Read SML frames from a meter and publish the configured sensors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runListen(cmd.Context(), cfg)
		},
	}

	configPath string
	replayPath string
)

func init() {
	listenCmd.Flags().StringVarP(&configPath, "config", "c", "gosml.yaml", "path to the YAML configuration")
	listenCmd.Flags().StringVar(&replayPath, "replay", "", "read a recorded binary stream instead of the serial port")
}

func runListen(ctx context.Context, cfg config.Config) error {
	log := logrus.StandardLogger()
	sinks := []agent.Sink{agent.LogSink(log)}

	if cfg.MQTT.Enabled {
		pub := mqtt.NewPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         cfg.MQTT.QoS,
			Retained:    cfg.MQTT.Retained,
		}, log)
		if err := pub.Connect(); err != nil {
			return err
		}
		defer pub.Disconnect()
		sinks = append(sinks, agent.SinkFunc("mqtt", func(_ context.Context, r reading.Reading) error {
			return pub.Publish(r)
		}))
	}
	if path := cfg.Storage.LatestPath; path != "" {
		latest, err := storage.OpenLatest(path)
		if err != nil {
			return err
		}
		defer latest.Close()
		sinks = append(sinks, agent.SinkFunc("latest", func(_ context.Context, r reading.Reading) error {
			return latest.Put(r)
		}))
	}
	if path := cfg.Storage.HistoryPath; path != "" {
		history, err := storage.OpenHistory(path)
		if err != nil {
			return err
		}
		defer history.Close()
		sinks = append(sinks, agent.SinkFunc("history", history.Append))
	}

	src, err := openSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	a := agent.New(cfg, log, sinks...)
	log.WithField("sensors", len(cfg.Sensors)).Info("listening for SML frames")
	err = a.Run(ctx, src)
	stats := a.Stats()
	log.WithFields(logrus.Fields{
		"frames":   stats.Frames,
		"rejected": stats.Rejected,
		"readings": stats.Readings,
	}).Info("stopped")
	return err
}

type source struct {
	io.Reader
	io.Closer
}

func openSource(ctx context.Context, cfg config.Config) (io.ReadCloser, error) {
	if replayPath != "" {
		f, err := os.Open(replayPath)
		if err != nil {
			return nil, fmt.Errorf("open replay: %w", err)
		}
		return f, nil
	}
	if cfg.Serial.Port == "" {
		return nil, errors.New("serial.port is not configured")
	}
	port, err := transport.OpenSerial(transport.SerialConfig{
		Port:        cfg.Serial.Port,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		return nil, err
	}
	return source{Reader: transport.Polling(ctx, port), Closer: port}, nil
}
