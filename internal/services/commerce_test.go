package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/coursehub/internal/apperr"
	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/roles"
)

func TestCart(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	course := env.publishedCourse(t, "Go", 10000, fac)

	cart, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, models.DefaultPlan, cart.Items[0].Plan)
	assert.Equal(t, int64(10000), cart.Total)

	cart, err = env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex(), Plan: "monthly"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1, "re-adding replaces the item")
	assert.Equal(t, int64(2500), cart.Total)

	// Later price changes do not touch items already in the cart.
	course.Price = 99999
	require.NoError(t, env.store.Courses.Update(ctx, course))
	cart, err = env.svc.Cart.Get(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), cart.Total)

	_, err = env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex(), Plan: "lifetime"})
	assert.Equal(t, 400, apperr.Status(err))

	cart, err = env.svc.Cart.Remove(ctx, buyer.ID, course.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	_, err = env.svc.Cart.Remove(ctx, buyer.ID, course.ID)
	assert.Equal(t, 404, apperr.Status(err))
}

func TestCartRejectsUnpublishedAndOwned(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	free := env.publishedCourse(t, "Free", 0, fac)
	draft := &models.Course{Title: "Draft", Status: models.CourseDraft, Price: 100}
	require.NoError(t, env.store.Courses.Create(ctx, draft))

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: draft.ID.Hex()})
	assert.Equal(t, 404, apperr.Status(err))

	_, err = env.svc.Enrollments.EnrollFree(ctx, buyer, free.ID)
	require.NoError(t, err)
	_, err = env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: free.ID.Hex()})
	assert.Equal(t, 409, apperr.Status(err))
}

func TestCheckoutAndVerify(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	goCourse := env.publishedCourse(t, "Go", 10000, fac)
	rustCourse := env.publishedCourse(t, "Rust", 20000, fac)

	_, err := env.svc.Checkout.Checkout(ctx, buyer)
	assert.Equal(t, 400, apperr.Status(err), "empty cart")

	for _, c := range []*models.Course{goCourse, rustCourse} {
		_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: c.ID.Hex()})
		require.NoError(t, err)
	}

	res, err := env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), res.Order.Total)
	assert.Equal(t, models.OrderPending, res.Order.Status)
	assert.Equal(t, "https://pay.test/"+res.Reference, res.AuthorizationURL)
	require.Len(t, env.gateway.inits, 1)
	assert.Equal(t, "buyer@example.com", env.gateway.inits[0].Email)

	env.gateway.settle(res.Reference, 30000, "ngn", "success")

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, err := env.svc.Checkout.Verify(ctx, buyer, res.Reference)
			assert.NoError(t, err)
			assert.Equal(t, models.OrderPaid, order.Status)
		}()
	}
	wg.Wait()

	enrollments, err := env.svc.Enrollments.List(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Len(t, enrollments, 2)

	cart, err := env.svc.Cart.Get(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	payments := 0
	for _, n := range env.notifications(t, buyer.ID) {
		if n.Type == "payment" {
			payments++
		}
	}
	assert.Equal(t, 1, payments, "fulfilment runs once")

	stats, err := env.svc.Dashboard.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PaidOrders)
	assert.Equal(t, int64(30000), stats.Revenue)
	assert.Equal(t, int64(2), stats.Enrollments)
	assert.Equal(t, int64(2), stats.Courses[models.CoursePublished])
	assert.Equal(t, int64(0), stats.Courses[models.CourseDraft])
}

func TestVerifyRejectsAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	course := env.publishedCourse(t, "Go", 10000, fac)

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	res, err := env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)

	env.gateway.settle(res.Reference, 100, "NGN", "success")
	_, err = env.svc.Checkout.Verify(ctx, buyer, res.Reference)
	assert.Equal(t, 402, apperr.Status(err))

	order, err := env.store.Orders.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, order.Status)

	_, err = env.store.Enrollments.Get(ctx, buyer.ID, course.ID)
	assert.Equal(t, 404, apperr.Status(err))

	_, err = env.svc.Checkout.Verify(ctx, buyer, "unknown")
	assert.Equal(t, 404, apperr.Status(err))
}

func TestVerifyIsScopedToBuyer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	other := env.user(t, "other@example.com", roles.User)
	course := env.publishedCourse(t, "Go", 10000, fac)

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	res, err := env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)
	env.gateway.settle(res.Reference, 10000, "NGN", "success")

	_, err = env.svc.Checkout.Verify(ctx, other, res.Reference)
	assert.Equal(t, 404, apperr.Status(err))

	order, err := env.store.Orders.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status, "a stranger cannot settle the order")

	order, err = env.svc.Checkout.Verify(ctx, buyer, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)

	_, err = env.svc.Checkout.Verify(ctx, other, res.Reference)
	assert.Equal(t, 404, apperr.Status(err))
}

// flakyEnrollments fails the next n creates.
type flakyEnrollments struct {
	db.Enrollments
	mu sync.Mutex
	n  int
}

func (f *flakyEnrollments) Create(ctx context.Context, e *models.Enrollment) error {
	f.mu.Lock()
	fail := f.n > 0
	if fail {
		f.n--
	}
	f.mu.Unlock()
	if fail {
		return errors.New("write timeout")
	}
	return f.Enrollments.Create(ctx, e)
}

func TestVerifyRetriesFailedEnrollment(t *testing.T) {
	flaky := &flakyEnrollments{}
	env := newTestEnv(t, func(o *Options) {
		flaky.Enrollments = o.Store.Enrollments
		o.Store.Enrollments = flaky
	})
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	course := env.publishedCourse(t, "Go", 10000, fac)

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	res, err := env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)
	env.gateway.settle(res.Reference, 10000, "NGN", "success")

	flaky.n = 1
	_, err = env.svc.Checkout.Verify(ctx, buyer, res.Reference)
	require.Error(t, err)

	order, err := env.store.Orders.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)

	order, err = env.svc.Checkout.Verify(ctx, buyer, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)

	_, err = env.store.Enrollments.Get(ctx, buyer.ID, course.ID)
	assert.NoError(t, err)
}

func TestFreeCheckoutIsFulfilledImmediately(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	course := env.publishedCourse(t, "Free", 0, fac)

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	res, err := env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, res.Order.Status)
	assert.Empty(t, env.gateway.inits)

	_, err = env.store.Enrollments.Get(ctx, buyer.ID, course.ID)
	assert.NoError(t, err)
}

func TestWebhook(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	course := env.publishedCourse(t, "Go", 10000, fac)

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	res, err := env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)
	env.gateway.settle(res.Reference, 10000, "NGN", "success")

	body := []byte(`{"event":"charge.success","data":{"reference":"` + res.Reference + `"}}`)
	mac := hmac.New(sha512.New, []byte("sk_test"))
	mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))

	assert.Equal(t, 401, apperr.Status(env.svc.Checkout.HandleWebhook(ctx, body, "bad")))
	require.NoError(t, env.svc.Checkout.HandleWebhook(ctx, body, sig))

	order, err := env.store.Orders.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, order.Status)

	other := []byte(`{"event":"transfer.success","data":{}}`)
	mac = hmac.New(sha512.New, []byte("sk_test"))
	mac.Write(other)
	assert.NoError(t, env.svc.Checkout.HandleWebhook(ctx, other, hex.EncodeToString(mac.Sum(nil))))
}

func TestEnrollmentProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	learner := env.user(t, "learner@example.com", roles.User)
	paid := env.publishedCourse(t, "Paid", 500, fac)
	free := env.publishedCourse(t, "Free", 0, fac)

	_, err := env.svc.Enrollments.EnrollFree(ctx, learner, paid.ID)
	assert.Equal(t, 402, apperr.Status(err))

	_, err = env.svc.Enrollments.EnrollFree(ctx, learner, free.ID)
	require.NoError(t, err)
	_, err = env.svc.Enrollments.EnrollFree(ctx, learner, free.ID)
	assert.Equal(t, 409, apperr.Status(err))

	_, err = env.svc.Enrollments.CompleteLesson(ctx, learner.ID, free.ID, "3.0")
	assert.Equal(t, 400, apperr.Status(err))

	e, err := env.svc.Enrollments.CompleteLesson(ctx, learner.ID, free.ID, "0.0")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, e.Status)

	e, err = env.svc.Enrollments.CompleteLesson(ctx, learner.ID, free.ID, "0.0")
	require.NoError(t, err)
	assert.Len(t, e.Progress, 1)

	e, err = env.svc.Enrollments.CompleteLesson(ctx, learner.ID, free.ID, "0.1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, e.Status)

	_, err = env.svc.Enrollments.CompleteLesson(ctx, learner.ID, paid.ID, "0.0")
	assert.Equal(t, 404, apperr.Status(err))

	views, err := env.svc.Enrollments.List(ctx, learner.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 2, views[0].TotalLessons)
	assert.Equal(t, "Free", views[0].Course.Title)
}

func TestCompletionIgnoresRemovedLessons(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	learner := env.user(t, "learner@example.com", roles.User)
	course := env.publishedCourse(t, "Free", 0, fac)

	_, err := env.svc.Enrollments.EnrollFree(ctx, learner, course.ID)
	require.NoError(t, err)
	_, err = env.svc.Enrollments.CompleteLesson(ctx, learner.ID, course.ID, "0.1")
	require.NoError(t, err)

	course.Curriculum = []models.Section{
		{Title: "Basics", Lessons: []models.Lesson{{Title: "One"}}},
		{Title: "More", Lessons: []models.Lesson{{Title: "Three"}}},
	}
	require.NoError(t, env.store.Courses.Update(ctx, course))

	e, err := env.svc.Enrollments.CompleteLesson(ctx, learner.ID, course.ID, "0.0")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentActive, e.Status)

	e, err = env.svc.Enrollments.CompleteLesson(ctx, learner.ID, course.ID, "1.0")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, e.Status)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	fac := env.user(t, "fac@example.com", roles.Facilitator)
	buyer := env.user(t, "buyer@example.com", roles.User)
	course := env.publishedCourse(t, "Go", 100, fac)

	_, err := env.svc.Cart.Add(ctx, buyer.ID, CartInput{CourseID: course.ID.Hex()})
	require.NoError(t, err)
	_, err = env.svc.Checkout.Checkout(ctx, buyer)
	require.NoError(t, err)

	orders, total, err := env.svc.Checkout.ListOrders(ctx, db.OrderFilter{Status: models.OrderPending})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, buyer.ID, orders[0].UserID)
}
