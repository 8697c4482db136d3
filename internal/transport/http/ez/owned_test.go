package ez

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"arzaquna-api/internal/domain"
)

type note struct {
	ID        string `gorm:"primaryKey"`
	UserID    string
	Body      string
	CreatedAt time.Time
}

type noteIn struct {
	Body string `json:"body" binding:"required"`
}

func mockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func notes(db *gorm.DB) func(EZ) {
	return func(e EZ) {
		RegisterOwned(e, db, Owned[note, noteIn]{
			Path:     "/notes",
			ListKey:  "notes",
			NotFound: "note not found",
			Build: func(_ *gin.Context, _ *gorm.DB, uid string, in *noteIn) (*note, error) {
				return &note{ID: "n-new", UserID: uid, Body: in.Body}, nil
			},
		})
	}
}

func TestOwnedRequiresLogin(t *testing.T) {
	db, _ := mockDB(t)
	r := newEngine("", "", notes(db))
	for _, m := range []string{http.MethodGet, http.MethodPost} {
		w, _ := do(t, r, m, "/notes", `{"body":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code, m)
	}
}

func TestOwnedListScopesToOwner(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "notes" WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "notes" WHERE user_id = \$1 ORDER BY created_at DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "body"}).AddRow("n1", "u1", "hello"))

	w, env := do(t, newEngine("u1", domain.RoleUser, notes(db)), http.MethodGet, "/notes?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"notes":[{"ID":"n1","UserID":"u1","Body":"hello","CreatedAt":"0001-01-01T00:00:00Z"}],
		"pagination":{"page":1,"limit":5,"total":1,"pages":1}}`, string(env.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnedDeleteOthersIsNotFound(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectExec(`DELETE FROM "notes" WHERE user_id = \$1 AND id = \$2`).
		WithArgs("u1", "n9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	w, env := do(t, newEngine("u1", domain.RoleUser, notes(db)), http.MethodDelete, "/notes/n9", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "note not found", env.Msg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOwnedCreateValidates(t *testing.T) {
	db, _ := mockDB(t)
	w, env := do(t, newEngine("u1", domain.RoleUser, notes(db)), http.MethodPost, "/notes", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation failed", env.Msg)
}
