package configs

import (
	"time"

	"github.com/spf13/viper"
)

// SetDefaults sets default configuration values for all components
func SetDefaults(v *viper.Viper) {
	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", false)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}

	// HTTP server defaults
	if !v.IsSet("server.host") {
		v.Set("server.host", "0.0.0.0")
	}
	if !v.IsSet("server.port") {
		v.Set("server.port", 8080)
	}
	if !v.IsSet("server.read_timeout") {
		v.Set("server.read_timeout", 60*time.Second)
	}
	if !v.IsSet("server.write_timeout") {
		v.Set("server.write_timeout", 120*time.Second)
	}
	if !v.IsSet("server.max_upload_bytes") {
		v.Set("server.max_upload_bytes", int64(32*1024*1024))
	}

	// Vector index defaults
	if !v.IsSet("qdrant.host") {
		v.Set("qdrant.host", "localhost")
	}
	if !v.IsSet("qdrant.port") {
		v.Set("qdrant.port", 6334)
	}
	if !v.IsSet("qdrant.use_tls") {
		v.Set("qdrant.use_tls", false)
	}
	if !v.IsSet("qdrant.collection") {
		v.Set("qdrant.collection", "tracks")
	}

	// Artifact defaults
	if !v.IsSet("artifacts.scaler_path") {
		v.Set("artifacts.scaler_path", "./artifacts/standard_scaler.json")
	}
	if !v.IsSet("artifacts.model_path") {
		v.Set("artifacts.model_path", "./artifacts/mlp_model.json")
	}

	// Pipeline defaults
	if !v.IsSet("pipeline.max_concurrency") {
		v.Set("pipeline.max_concurrency", 4)
	}
	if !v.IsSet("pipeline.top_genres") {
		v.Set("pipeline.top_genres", 5)
	}
	if !v.IsSet("pipeline.top_similar") {
		v.Set("pipeline.top_similar", 10)
	}
}
