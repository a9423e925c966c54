package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_records_created_total",
		Help: "Records created, by entity.",
	}, []string{"entity"})

	recordsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_records_deleted_total",
		Help: "Records deleted, by entity.",
	}, []string{"entity"})

	statusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_status_transitions_total",
		Help: "Status transitions applied through dedicated transition operations.",
	}, []string{"entity", "status"})

	expiredHRDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_hr_documents_expired",
		Help: "HR documents whose expiry date has passed.",
	})

	expiringHRDocuments = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "portal_hr_documents_expiring_30d",
		Help: "HR documents expiring within the next 30 days.",
	})
)
