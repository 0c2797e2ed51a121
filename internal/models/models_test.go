package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arzan03/coursehub/internal/roles"
)

func TestCartPutReplacesSameCourse(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	cart := Cart{}
	cart.Put(CartItem{CourseID: a, Plan: DefaultPlan, Price: 5000})
	cart.Put(CartItem{CourseID: b, Plan: DefaultPlan, Price: 2500})
	cart.Put(CartItem{CourseID: a, Plan: "mentored", Price: 9000})

	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(11500), cart.Total())

	assert.True(t, cart.Remove(a))
	assert.False(t, cart.Remove(a))
	assert.Equal(t, int64(2500), cart.Total())
}

func TestCoursePlanPrice(t *testing.T) {
	c := Course{Price: 4000, Plans: []PricingPlan{{Name: "mentored", Price: 12000}}}

	p, ok := c.PlanPrice("")
	assert.True(t, ok)
	assert.Equal(t, int64(4000), p)

	p, ok = c.PlanPrice("mentored")
	assert.True(t, ok)
	assert.Equal(t, int64(12000), p)

	_, ok = c.PlanPrice("gold")
	assert.False(t, ok)
}

func TestCourseLessons(t *testing.T) {
	c := Course{Curriculum: []Section{
		{Title: "Intro", Lessons: []Lesson{{Title: "Hello"}, {Title: "Setup"}}},
		{Title: "Deep dive", Lessons: []Lesson{{Title: "Internals"}}},
	}}
	assert.Equal(t, 3, c.LessonCount())
	assert.True(t, c.HasLesson(1, 0))
	assert.False(t, c.HasLesson(1, 1))
	assert.False(t, c.HasLesson(-1, 0))
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := Session{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.Expired(now))
	assert.True(t, s.Expired(now.Add(time.Minute)))
}

func TestUserPermissions(t *testing.T) {
	u := User{Role: roles.Staff, Permissions: roles.Permissions{roles.UploadMedia: true}}
	assert.True(t, u.Can(roles.UploadMedia))
	assert.False(t, u.Can(roles.ManageUsers))

	u.DisplayName = ""
	u.Name = "Ada"
	assert.Equal(t, "Ada", u.PublicName())
}
