package services

import (
	"bytes"
	"context"
	"io"
	"net/mail"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/db"
	"github.com/arzan03/coursehub/internal/db/memory"
	"github.com/arzan03/coursehub/internal/identity"
	"github.com/arzan03/coursehub/internal/logger"
	"github.com/arzan03/coursehub/internal/mailer"
	"github.com/arzan03/coursehub/internal/models"
	"github.com/arzan03/coursehub/internal/payment"
	"github.com/arzan03/coursehub/internal/roles"
)

type fakeGateway struct {
	mu       sync.Mutex
	verified map[string]*payment.Verification
	inits    []payment.InitRequest
	verifies int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{verified: map[string]*payment.Verification{}}
}

func (g *fakeGateway) Initialize(_ context.Context, req payment.InitRequest) (*payment.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits = append(g.inits, req)
	return &payment.Checkout{AuthorizationURL: "https://pay.test/" + req.Reference, Reference: req.Reference}, nil
}

func (g *fakeGateway) Verify(_ context.Context, ref string) (*payment.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifies++
	v, ok := g.verified[ref]
	if !ok {
		return nil, errors.New("unknown reference")
	}
	return v, nil
}

func (g *fakeGateway) VerifySignature(body []byte, signature string) bool {
	return payment.ValidSignature("sk_test", body, signature)
}

func (g *fakeGateway) settle(ref string, amount int64, currency, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verified[ref] = &payment.Verification{Reference: ref, Amount: amount, Currency: currency, Status: status, GatewayResponse: "Approved"}
}

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
	failPut bool
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}}
}

func (o *fakeObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	if o.failPut {
		return "", errors.New("bucket unavailable")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	o.mu.Lock()
	o.objects[key] = b
	o.mu.Unlock()
	return o.URL(key), nil
}

func (o *fakeObjects) Remove(_ context.Context, key string) error {
	o.mu.Lock()
	delete(o.objects, key)
	o.mu.Unlock()
	return nil
}

func (o *fakeObjects) PresignedURL(_ context.Context, key string, expiry time.Duration) (string, error) {
	return o.URL(key) + "?expires=" + expiry.String(), nil
}

func (o *fakeObjects) URL(key string) string {
	return "https://cdn.test/media/" + key
}

func (o *fakeObjects) has(key string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.objects[key]
	return ok
}

type fakeVerifier struct {
	tokens map[string]*identity.Token
}

func (v *fakeVerifier) VerifyIDToken(_ context.Context, idToken string) (*identity.Token, error) {
	if t, ok := v.tokens[idToken]; ok {
		return t, nil
	}
	return nil, errors.New("bad token")
}

type testEnv struct {
	store   *db.Store
	svc     *Services
	gateway *fakeGateway
	objects *fakeObjects
	mail    *mailer.Console
}

func newTestEnv(t *testing.T, mutate ...func(*Options)) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:   store,
		gateway: newFakeGateway(),
		objects: newFakeObjects(),
		mail:    mailer.NewConsole("CourseHub", mail.Address{Address: "no-reply@test"}, logger.Nop()),
	}
	opts := Options{
		Store:         store,
		JWTSecret:     "test-secret",
		SessionTTL:    time.Hour,
		Objects:       env.objects,
		Gateway:       env.gateway,
		Mailer:        env.mail,
		Logger:        logger.Nop(),
		Currency:      "NGN",
		MediaMaxBytes: 1 << 20,
		NotifyWorkers: 2,
	}
	for _, m := range mutate {
		m(&opts)
	}
	env.svc = New(opts)
	t.Cleanup(env.svc.Close)
	return env
}

func (e *testEnv) user(t *testing.T, email string, role roles.Role) *models.User {
	t.Helper()
	hash, err := HashPassword("password123")
	require.NoError(t, err)
	u := &models.User{Email: email, Name: email, Password: hash, Role: role, CreatedAt: time.Now()}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

func (e *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: name}
	require.NoError(t, e.store.Categories.Create(context.Background(), c))
	return c
}

// publishedCourse stores a published course with two lessons.
func (e *testEnv) publishedCourse(t *testing.T, title string, price int64, instructor *models.User) *models.Course {
	t.Helper()
	cat := e.category(t, "cat-"+title)
	c := &models.Course{
		Title:      title,
		CategoryID: cat.ID,
		Price:      price,
		Plans:      []models.PricingPlan{{Name: "monthly", Price: price / 4}},
		Instructor: models.Instructor{ID: instructor.ID, Name: instructor.Name},
		Status:     models.CoursePublished,
		Curriculum: []models.Section{{Title: "Basics", Lessons: []models.Lesson{{Title: "One"}, {Title: "Two"}}}},
		CreatedBy:  instructor.ID,
	}
	require.NoError(t, e.store.Courses.Create(context.Background(), c))
	return c
}

func (e *testEnv) notifications(t *testing.T, userID primitive.ObjectID) []models.Notification {
	t.Helper()
	items, _, err := e.store.Notifications.List(context.Background(), db.NotificationFilter{RecipientID: userID})
	require.NoError(t, err)
	return items
}

func upload(name, contentType string, body []byte) Upload {
	return Upload{Filename: name, ContentType: contentType, Size: int64(len(body)), Body: bytes.NewReader(body)}
}
