package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/repo"
	"arzaquna-api/internal/service"
)

// workflowDeps 入驻流程走真实的 service + gorm Store
func workflowDeps(db *gorm.DB) Deps {
	d := deps(db)
	d.Apps = service.NewVendorApplicationService(repo.NewStore(db), zap.NewNop())
	return d
}

func applicationRow(status domain.ApplicationStatus) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "full_name", "store_name", "status", "version"}).
		AddRow("app-1", "u9", "Sara", "Green Farm", string(status), 1)
}

func expectApplicationLoad(mock sqlmock.Sqlmock, status domain.ApplicationStatus) {
	mock.ExpectQuery(`SELECT \* FROM "vendor_applications" WHERE id = \$1`).
		WithArgs("app-1", sqlmock.AnyArg()).
		WillReturnRows(applicationRow(status))
	mock.ExpectQuery(`SELECT \* FROM "vendor_application_categories" WHERE "vendor_application_categories"."application_id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "application_id", "category_id"}).AddRow("ac1", "app-1", "c1"))
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "full_name", "role"}).AddRow("u9", "Sara", "USER"))
}

const rejectBody = `{"status":"REJECTED","rejectionReason":"Incomplete documents"}`

func TestReviewApplicationHTTP(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "vendor_applications" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		w, env := do(t, engine("a1", domain.RoleAdmin, NewVendorsModule(workflowDeps(db))),
			http.MethodPut, "/api/v1/vendors/applications/app-1/review", rejectBody)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application not found", env.Msg)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already reviewed", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		expectApplicationLoad(mock, domain.ApplicationApproved)
		mock.ExpectRollback()

		w, env := do(t, engine("a1", domain.RoleAdmin, NewVendorsModule(workflowDeps(db))),
			http.MethodPut, "/api/v1/vendors/applications/app-1/review", rejectBody)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, domain.ErrAlreadyReviewed.Msg, env.Msg)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lost race at conditional update", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		expectApplicationLoad(mock, domain.ApplicationPending)
		mock.ExpectExec(`UPDATE "vendor_applications" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		w, _ := do(t, engine("a1", domain.RoleAdmin, NewVendorsModule(workflowDeps(db))),
			http.MethodPut, "/api/v1/vendors/applications/app-1/review", rejectBody)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejected", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		expectApplicationLoad(mock, domain.ApplicationPending)
		mock.ExpectExec(`UPDATE "vendor_applications" SET .* WHERE id = \$\d+ AND status = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "application_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w, env := do(t, engine("a1", domain.RoleAdmin, NewVendorsModule(workflowDeps(db))),
			http.MethodPut, "/api/v1/vendors/applications/app-1/review", rejectBody)
		require.Equal(t, http.StatusOK, w.Code, env.Msg)
		var app domain.VendorApplication
		require.NoError(t, json.Unmarshal(env.Data, &app))
		assert.Equal(t, domain.ApplicationRejected, app.Status)
		assert.Equal(t, "Incomplete documents", app.RejectionReason)
		assert.Equal(t, "a1", app.ReviewedBy)
		assert.Equal(t, 2, app.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

const applyBody = `{"fullName":"Sara","phone":"+966500000001","email":"Sara@Farm.SA","storeName":"Green Farm",` +
	`"specialization":["c1"],"city":"Riyadh","region":"Central","yearsOfExperience":4,` +
	`"whatsappNumber":"+966500000001","callNumber":"+966500000001"}`

func expectApplyPrelude(mock sqlmock.Sqlmock, openApps int) {
	mock.ExpectQuery(`SELECT \* FROM "categories" WHERE id IN \(\$1\)`).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name_en", "is_active"}).AddRow("c1", "Cows", true))
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "is_active"}).AddRow("u1", "USER", true))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "vendor_applications" WHERE user_id = \$1 AND status IN`).
		WithArgs("u1", "PENDING", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(openApps))
}

func TestApplyHTTP(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		db, mock := newMockDB(t)
		expectApplyPrelude(mock, 0)
		mock.ExpectQuery(`SELECT \* FROM "vendors" WHERE user_id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectExec(`INSERT INTO "vendor_applications"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "vendor_application_categories"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO "application_events"`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		w, env := do(t, engine("u1", domain.RoleUser, NewVendorsModule(workflowDeps(db))),
			http.MethodPost, "/api/v1/vendors/apply", applyBody)
		require.Equal(t, http.StatusCreated, w.Code, env.Msg)
		var app domain.VendorApplication
		require.NoError(t, json.Unmarshal(env.Data, &app))
		assert.Equal(t, domain.ApplicationPending, app.Status)
		assert.Equal(t, "sara@farm.sa", app.Email)
		assert.Equal(t, []string{"c1"}, app.Specialization)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already applied", func(t *testing.T) {
		db, mock := newMockDB(t)
		expectApplyPrelude(mock, 1)
		mock.ExpectRollback()

		w, env := do(t, engine("u1", domain.RoleUser, NewVendorsModule(workflowDeps(db))),
			http.MethodPost, "/api/v1/vendors/apply", applyBody)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, domain.ErrAlreadyApplied.Msg, env.Msg)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
