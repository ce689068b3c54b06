// Command cluster-analytics subscribes to every scene's regulated object
// stream, runs density clustering and cluster tracking, and republishes
// cluster batches per scene. It is scene-agnostic: a single instance
// serves every scene advertised on the regulated topic.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/scene-analytics/internal/cluster"
	"github.com/banshee-data/scene-analytics/internal/config"
	"github.com/banshee-data/scene-analytics/internal/metrics"
	"github.com/banshee-data/scene-analytics/internal/monitoring"
	"github.com/banshee-data/scene-analytics/internal/transport"
)

var (
	configPath  = flag.String("config", "", "path to JSON configuration file (optional)")
	mqttBroker  = flag.String("mqtt-broker", "tcp://localhost:1883", "MQTT broker URL")
	clientID    = flag.String("client-id", "cluster-analytics", "MQTT client id")
	metricsAddr = flag.String("metrics-addr", ":9091", "address to expose Prometheus metrics on")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("cluster-analytics: %v", err)
	}

	params := config.NewParamStore(cfg)
	memory := cluster.NewMemory()
	cluster.WireParamInvalidation(params, memory)

	runner := cluster.NewRunner(params)
	coordinator := cluster.NewCoordinator(memory, cfg.ClusterTracking, cluster.Hooks{
		OnAfterPublish: func(sceneID string, published []*cluster.TrackedCluster) {
			monitoring.Logf("cluster-analytics: scene %s publishing %d clusters", sceneID, len(published))
		},
	})

	adapter := transport.NewAdapter(*mqttBroker, *clientID, transport.Credentials{})
	if err := adapter.Connect(); err != nil {
		log.Fatalf("cluster-analytics: %v", err)
	}
	defer adapter.Disconnect(250 * time.Millisecond)

	regulatedFilter := "scenescape/data/scene/{scene_id}/regulated"
	err = adapter.Subscribe(regulatedFilter, 0, func(topic string, bindings map[string]string, payload []byte) {
		sceneID, sceneName, points, err := cluster.DecodeSceneRegulated(payload)
		if err != nil {
			metrics.MalformedPayloads.WithLabelValues(topic).Inc()
			monitoring.Logf("cluster-analytics: malformed regulated message on %s: %v", topic, err)
			return
		}
		if sceneID == "" {
			sceneID = bindings["scene_id"]
		}

		now := time.Now()
		detections := runner.Run(sceneID, points)
		published := coordinator.Process(sceneID, detections, now)

		raw, err := cluster.EncodeClusterBatch(sceneID, sceneName, now, published)
		if err != nil {
			monitoring.Logf("cluster-analytics: encode cluster batch for scene %s: %v", sceneID, err)
			return
		}
		clusterTopic := transport.FormatTopic("scenescape/analytics/clusters/{scene_id}", map[string]string{"scene_id": sceneID})
		if err := adapter.Publish(clusterTopic, 0, raw); err != nil {
			monitoring.Logf("cluster-analytics: publish cluster batch for scene %s: %v", sceneID, err)
		}
	})
	if err != nil {
		log.Fatalf("cluster-analytics: subscribe regulated: %v", err)
	}

	metrics.Serve(*metricsAddr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Print("cluster-analytics: shutting down")
}
