package db

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/arzan03/coursehub/internal/apperr"
)

func TestPageNormalize(t *testing.T) {
	p := Page{}.Normalize()
	assert.Equal(t, int64(1), p.Page)
	assert.Equal(t, int64(defaultLimit), p.Limit)

	p = Page{Page: 3, Limit: 1000}.Normalize()
	assert.Equal(t, int64(maxLimit), p.Limit)
	assert.Equal(t, int64(200), Page{Page: 3, Limit: 1000}.Skip())
	assert.Equal(t, int64(0), Page{Page: -4, Limit: 10}.Skip())
}

func TestMapErr(t *testing.T) {
	assert.NoError(t, mapErr(nil, "user"))
	assert.True(t, errors.Is(mapErr(mongo.ErrNoDocuments, "user"), apperr.ErrNotFound))

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.True(t, errors.Is(mapErr(dup, "user"), apperr.ErrConflict))

	other := errors.New("socket closed")
	err := mapErr(other, "user")
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
	assert.Contains(t, err.Error(), "socket closed")
}

func TestSearchRegexEscapes(t *testing.T) {
	rx := searchRegex("  c++ (intro) ")
	assert.Equal(t, `c\+\+ \(intro\)`, rx.Pattern)
	assert.Equal(t, "i", rx.Options)
}

func TestCourseIndexesMatchQueries(t *testing.T) {
	var keys []string
	for _, m := range indexModels()[CoursesCollection] {
		for _, k := range m.Keys.(bson.D) {
			assert.NotEqual(t, "text", k.Value, "course search filters with regexes")
			keys = append(keys, k.Key)
		}
	}
	assert.Contains(t, keys, "instructor.id")
	assert.Contains(t, keys, "category_id")
}
