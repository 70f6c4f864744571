package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantMsg  string
	}{
		{
			name:     "domain error passes through",
			err:      Forbidden("this post is available to friends only"),
			wantKind: KindForbidden,
			wantMsg:  "this post is available to friends only",
		},
		{
			name:     "wrapped domain error",
			err:      fmt.Errorf("toggle: %w", BadRequest("already a member")),
			wantKind: KindBadRequest,
			wantMsg:  "already a member",
		},
		{
			name:     "postgres unique violation",
			err:      fmt.Errorf("create user: %w", &pgconn.PgError{Code: "23505"}),
			wantKind: KindConflict,
		},
		{
			name:     "gorm duplicated key",
			err:      gorm.ErrDuplicatedKey,
			wantKind: KindConflict,
		},
		{
			name:     "mongo duplicate key",
			err:      mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}},
			wantKind: KindConflict,
		},
		{
			name:     "unknown error is hidden",
			err:      errors.New("dial tcp 10.0.0.3:27017: connection refused"),
			wantKind: KindInternal,
			wantMsg:  internalMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, got.Message)
			}
			assert.NotContains(t, got.Message, "10.0.0.3")
		})
	}
}

func TestTranslateNil(t *testing.T) {
	assert.Nil(t, Translate(nil))
}

func TestKindHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindBadUserInput.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, KindUnauthenticated.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NotFound("group not found"))
	assert.True(t, Is(err, KindNotFound))
	assert.False(t, Is(err, KindForbidden))
	assert.False(t, Is(nil, KindNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}
