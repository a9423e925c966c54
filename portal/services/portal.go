package services

import (
	"fieldops_portal/portal/auth"
	"fieldops_portal/portal/schema"
	"fieldops_portal/portal/storage"
	"fieldops_portal/utils"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Portal struct {
	user            UserService
	project         ProjectService
	contractor      ContractorService
	fiberTeam       FiberTeamService
	leave           LeaveService
	training        TrainingService
	procurement     ProcurementService
	hrDocument      HRDocumentService
	projectDocument ProjectDocumentService
	shift           ShiftService

	db   *gorm.DB
	now  func() time.Time
	stop chan bool
}

func NewPortal(db *gorm.DB, store storage.Storage, userAuth auth.IdentityProvider, now func() time.Time) Portal {
	return Portal{
		user:            UserService{db: db, userAuth: userAuth},
		project:         ProjectService{db: db, userAuth: userAuth},
		contractor:      ContractorService{db: db, store: store, userAuth: userAuth},
		fiberTeam:       FiberTeamService{db: db, userAuth: userAuth},
		leave:           LeaveService{db: db, userAuth: userAuth},
		training:        TrainingService{db: db, userAuth: userAuth},
		procurement:     ProcurementService{db: db, userAuth: userAuth},
		hrDocument:      HRDocumentService{db: db, store: store, userAuth: userAuth, now: now},
		projectDocument: ProjectDocumentService{db: db, store: store, userAuth: userAuth},
		shift:           ShiftService{db: db, userAuth: userAuth},
		db:              db,
		now:             now,
		stop:            make(chan bool, 1),
	}
}

func (p *Portal) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", p.user.Routes())
	r.Mount("/project", p.project.Routes())
	r.Mount("/contractor", p.contractor.Routes())
	r.Mount("/fiber-team", p.fiberTeam.Routes())
	r.Mount("/leave", p.leave.Routes())
	r.Mount("/training", p.training.Routes())
	r.Mount("/procurement", p.procurement.Routes())
	r.Mount("/hr-document", p.hrDocument.Routes())
	r.Mount("/project-document", p.projectDocument.Routes())
	r.Mount("/shift", p.shift.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}

func (p *Portal) refreshExpiryGauges() {
	var documents []schema.HRDocument
	result := p.db.Find(&documents)
	if result.Error != nil {
		slog.Error("expiry sync: sql error querying hr documents", "error", result.Error)
		return
	}

	today := p.now()
	expired, expiring := 0, 0
	for _, document := range documents {
		classification := classifyDocument(&document, today)
		if classification.IsExpired() {
			expired++
		} else if classification.ExpiresWithin(30) {
			expiring++
		}
	}

	expiredHRDocuments.Set(float64(expired))
	expiringHRDocuments.Set(float64(expiring))
}

// ExpiryMetricsSync keeps the expiry gauges fresh so dashboards see documents
// cross tier boundaries without any write traffic. The window matches the
// widest tier in the expiry policy.
func (p *Portal) ExpiryMetricsSync(interval time.Duration) {
	slog.Info("expiry sync: starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.refreshExpiryGauges()
		case <-p.stop:
			slog.Info("expiry sync: process stopped")
			return
		}
	}
}

func (p *Portal) StopExpiryMetricsSync() {
	close(p.stop)
}
