package config

import (
	"os"
	"strconv"
	"time"
)

// Tracking holds every tunable of the GPS tracking engine. All values come
// from env vars with defaults tuned for urban service routes.
type Tracking struct {
	// points with worse reported accuracy are stored but rejected
	MinGPSAccuracyMeters float64
	// reported speeds above this raise SPEED_VIOLATION
	MaxSpeedKmh float64
	// displacement above this triggers the implied-speed jump check
	GPSJumpDistanceMeters float64

	// stop detection
	StopDetectionRadiusMeters float64
	StopMinDuration           time.Duration
	GeofenceRadiusMeters      float64

	// sweeper
	LongStopThreshold time.Duration
	AutoCloseAfter    time.Duration
	SweepInterval     time.Duration

	// odometer vs GPS distance
	MileageThresholdKm float64
}

// LoadTracking reads the engine configuration from the environment.
func LoadTracking() Tracking {
	return Tracking{
		MinGPSAccuracyMeters:      envFloat("MIN_GPS_ACCURACY_METERS", 50),
		MaxSpeedKmh:               envFloat("MAX_SPEED_KMH", 120),
		GPSJumpDistanceMeters:     envFloat("GPS_JUMP_DISTANCE_METERS", 1000),
		StopDetectionRadiusMeters: envFloat("STOP_DETECTION_RADIUS_METERS", 50),
		StopMinDuration:           envSeconds("STOP_MIN_DURATION_SECONDS", 180*time.Second),
		GeofenceRadiusMeters:      envFloat("GEOFENCE_RADIUS_METERS", 100),
		LongStopThreshold:         time.Duration(envInt("LONG_STOP_THRESHOLD_MINUTES", 45)) * time.Minute,
		AutoCloseAfter:            time.Duration(envInt("AUTO_CLOSE_AFTER_HOURS", 12)) * time.Hour,
		SweepInterval:             time.Duration(envInt("SWEEP_INTERVAL_MINUTES", 15)) * time.Minute,
		MileageThresholdKm:        envFloat("MILEAGE_THRESHOLD_KM", 50),
	}
}

func envFloat(key string, def float64) float64 {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func envSeconds(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}
