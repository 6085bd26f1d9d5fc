// Package metrics holds the prometheus collectors of the service.
// Labels are bounded enums only, never ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "elevate360"

var (
	// SourceResolutions counts video reference resolutions by resulting kind and outcome.
	SourceResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "video_source_resolutions_total",
		Help:      "Total number of video reference resolutions, by resolved kind and outcome.",
	}, []string{"kind", "outcome"})

	// PlaybackErrors counts playback sessions entering the errored state by error kind.
	PlaybackErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playback_errors_total",
		Help:      "Total number of playback errors, by error kind.",
	}, []string{"kind"})

	// PlaybackSessions tracks open playback websocket sessions.
	PlaybackSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "playback_sessions",
		Help:      "Current number of open playback sessions.",
	})

	// ChallengeSubmissions counts answered challenges by correctness.
	ChallengeSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "challenge_submissions_total",
		Help:      "Total number of challenge answers, by correctness.",
	}, []string{"correct"})

	// LoginFailures counts rejected sign-in attempts by reason.
	LoginFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_failures_total",
		Help:      "Total number of rejected sign-in attempts, by reason.",
	}, []string{"reason"})

	// RateLimited counts requests rejected by the per-client limiter.
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_exceeded_total",
		Help:      "Total rate limit rejections, by route group.",
	}, []string{"group"})

	// VideoDownloads counts offline download attempts by outcome.
	VideoDownloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "video_downloads_total",
		Help:      "Total number of offline video downloads, by outcome.",
	}, []string{"outcome"})
)

// BoolLabel renders a bool label value
func BoolLabel(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
