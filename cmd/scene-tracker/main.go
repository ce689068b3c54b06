// Command scene-tracker subscribes to one scene's camera detections, runs
// them through the per-category tracking pipeline, and republishes fused
// scene state at the configured regulated rate.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/scene-analytics/internal/config"
	"github.com/banshee-data/scene-analytics/internal/detect"
	"github.com/banshee-data/scene-analytics/internal/metrics"
	"github.com/banshee-data/scene-analytics/internal/monitoring"
	"github.com/banshee-data/scene-analytics/internal/scenemeta"
	"github.com/banshee-data/scene-analytics/internal/tracking"
	"github.com/banshee-data/scene-analytics/internal/transport"
)

var (
	configPath = flag.String("config", "", "path to JSON configuration file (optional)")
	mqttBroker = flag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")
	sceneID    = flag.String("scene-id", "", "scene id this tracker instance serves (required)")
	sceneName  = flag.String("scene-name", "", "human-readable scene name (defaults to scene-id)")
	clientID   = flag.String("client-id", "scene-tracker", "MQTT client id")
	metricsAddr = flag.String("metrics-addr", ":9090", "address to expose Prometheus metrics on")
	cameraFPS  = flag.Float64("camera-fps", 10, "assumed camera frame-rate, used for prediction step sizing until a per-camera rate is known")
)

func main() {
	flag.Parse()
	if *sceneID == "" {
		log.Fatal("scene-tracker: -scene-id is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("scene-tracker: %v", err)
	}

	name := *sceneName
	if name == "" {
		name = *sceneID
	}
	meta := scenemeta.NewInMemoryProvider(scenemeta.CategoryDefaults{Static: false, TrackingRadius: 1.5})

	factory := tracking.DefaultWorkerFactory(cfg,
		func(category string) bool { return meta.CategoryDefaults(category).Static },
		func(category string) float64 { return meta.CategoryDefaults(category).TrackingRadius },
	)
	scene := tracking.NewSceneTracker(*sceneID, factory)
	defer scene.Shutdown()

	adapter := transport.NewAdapter(*mqttBroker, *clientID, transport.Credentials{})
	if err := adapter.Connect(); err != nil {
		log.Fatalf("scene-tracker: %v", err)
	}
	defer adapter.Disconnect(250 * time.Millisecond)

	detectionTopic := "scenescape/data/camera/{camera_id}"
	err = adapter.Subscribe(detectionTopic, 0, func(topic string, bindings map[string]string, payload []byte) {
		det, err := detect.Decode(payload)
		if err != nil {
			metrics.MalformedPayloads.WithLabelValues(topic).Inc()
			monitoring.Logf("scene-tracker: malformed detection on %s: %v", topic, err)
			return
		}
		scene.Dispatch(det, *cameraFPS, tracking.Streaming)
	})
	if err != nil {
		log.Fatalf("scene-tracker: subscribe detections: %v", err)
	}

	regulatedTopic := transport.FormatTopic("scenescape/data/scene/{scene_id}/regulated", map[string]string{"scene_id": *sceneID})
	period := time.Duration(float64(time.Second) / cfg.RegulateRate)
	regulator := tracking.NewRegulator(scene, name, period, func(msg tracking.SceneMessage) error {
		raw, err := tracking.EncodeSceneMessage(msg)
		if err != nil {
			return err
		}
		return adapter.Publish(regulatedTopic, 0, raw)
	})

	go regulator.Run()
	defer regulator.Stop()

	metrics.Serve(*metricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Print("scene-tracker: shutting down")
}
