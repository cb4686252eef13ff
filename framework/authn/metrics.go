/*
credgate - Pluggable credential authentication engine.
Copyright © 2019-2024 Max Mazurov <fox.cpp@disroot.org>, credgate contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package authn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"

var (
	attemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credgate",
			Subsystem: "authn",
			Name:      "attempts_total",
			Help:      "Authentication attempts by outcome",
		},
		[]string{"handler", "outcome"},
	)
	attemptDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "credgate",
			Subsystem: "authn",
			Name:      "duration_seconds",
			Help:      "Time spent on a single authentication attempt",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"handler"},
	)
)

func outcomeLabel(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	if kind := KindOf(err); kind != KindUnknown {
		return string(kind)
	}
	return "error"
}

func observeAttempt(handler string, err error, d time.Duration) {
	attemptsTotal.WithLabelValues(handler, outcomeLabel(err)).Inc()
	attemptDuration.WithLabelValues(handler).Observe(d.Seconds())
}

func init() {
	prometheus.MustRegister(attemptsTotal)
	prometheus.MustRegister(attemptDuration)
}
