package services

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
)

// Stats are the admin dashboard counters.
type Stats struct {
	Users       int64                         `json:"users"`
	Courses     map[models.CourseStatus]int64 `json:"courses"`
	Enrollments int64                         `json:"enrollments"`
	PaidOrders  int64                         `json:"paid_orders"`
	Revenue     int64                         `json:"revenue"`
	Currency    string                        `json:"currency"`
}

// DashboardService gathers admin counters.
type DashboardService struct {
	store    *db.Store
	currency string
}

// NewDashboardService wires the dashboard to the store.
func NewDashboardService(store *db.Store, currency string) *DashboardService {
	return &DashboardService{store: store, currency: currency}
}

// Stats gathers the back-office counters concurrently.
func (s *DashboardService) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{Currency: s.currency}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.store.Users.Count(ctx)
		st.Users = n
		return errors.Wrap(err, "counting users")
	})
	g.Go(func() error {
		m, err := s.store.Courses.CountByStatus(ctx)
		st.Courses = m
		return errors.Wrap(err, "counting courses")
	})
	g.Go(func() error {
		n, err := s.store.Enrollments.Count(ctx)
		st.Enrollments = n
		return errors.Wrap(err, "counting enrollments")
	})
	g.Go(func() error {
		count, total, err := s.store.Orders.Revenue(ctx)
		st.PaidOrders, st.Revenue = count, total
		return errors.Wrap(err, "summing revenue")
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, status := range []models.CourseStatus{models.CourseDraft, models.CoursePublished, models.CourseArchived} {
		if _, ok := st.Courses[status]; !ok {
			if st.Courses == nil {
				st.Courses = map[models.CourseStatus]int64{}
			}
			st.Courses[status] = 0
		}
	}
	return st, nil
}
