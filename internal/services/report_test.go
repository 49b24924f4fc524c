package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

func newReportEnv(t *testing.T) (ReportService, MessageService, repos.BugReportRepo, *requestdata.TenantContext, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	log := logger.NewNop()
	bugRepo := repos.NewBugReportRepo(db, log)
	reportSvc := NewReportService(db, log, bugRepo)
	messageSvc := NewMessageService(db, log, bugRepo, repos.NewBugReportMessageRepo(db, log))
	tenant := seedTenant(t, db, "Acme", "Storefront")
	return reportSvc, messageSvc, bugRepo, tenant, db
}

func createPlainReport(t *testing.T, bugRepo repos.BugReportRepo, tenant *requestdata.TenantContext) *types.BugReport {
	t.Helper()
	report, err := bugRepo.Create(context.Background(), nil, &types.BugReport{
		OrganizationID: tenant.OrganizationID,
		ApplicationID:  tenant.ApplicationID,
		Title:          "Sticky footer overlaps content",
		Description:    "footer covers the submit button",
		PageURL:        "https://store.example.com/contact",
	})
	if err != nil {
		t.Fatalf("create report: %v", err)
	}
	return report
}

func TestUpdateStatus_ValidTransition(t *testing.T) {
	reportSvc, _, bugRepo, tenant, _ := newReportEnv(t)
	report := createPlainReport(t, bugRepo, tenant)

	updated, err := reportSvc.UpdateStatus(context.Background(), tenant.OrganizationID, report.ID, types.BugStatusInProgress)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if updated.Status != types.BugStatusInProgress {
		t.Fatalf("status = %q, want %q", updated.Status, types.BugStatusInProgress)
	}
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	reportSvc, _, bugRepo, tenant, _ := newReportEnv(t)
	report := createPlainReport(t, bugRepo, tenant)

	if _, err := reportSvc.UpdateStatus(context.Background(), tenant.OrganizationID, report.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status = %v, want ErrInvalidStatus", err)
	}
}

func TestGetForOrganization_CrossOrgIsNotFound(t *testing.T) {
	reportSvc, _, bugRepo, tenant, db := newReportEnv(t)
	report := createPlainReport(t, bugRepo, tenant)
	otherTenant := seedTenant(t, db, "Globex", "Portal")

	if _, err := reportSvc.GetForOrganization(context.Background(), otherTenant.OrganizationID, report.ID); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("cross-org get = %v, want ErrReportNotFound", err)
	}
	if _, err := reportSvc.GetForOrganization(context.Background(), tenant.OrganizationID, uuid.New()); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("unknown id = %v, want ErrReportNotFound", err)
	}
}

func TestMessages_AppendAndListInOrder(t *testing.T) {
	_, messageSvc, bugRepo, tenant, _ := newReportEnv(t)
	report := createPlainReport(t, bugRepo, tenant)
	ctx := context.Background()

	if _, err := messageSvc.Append(ctx, tenant.OrganizationID, report.ID, "Dana", "Can you reproduce this?"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := messageSvc.Append(ctx, tenant.OrganizationID, report.ID, "Lee", "Yes, on Safari 19."); err != nil {
		t.Fatalf("append: %v", err)
	}

	messages, err := messageSvc.List(ctx, tenant.OrganizationID, report.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].AuthorName != "Dana" || messages[1].AuthorName != "Lee" {
		t.Fatalf("messages out of order: %#v", messages)
	}
}

func TestMessages_RejectEmptyBodyAndForeignReport(t *testing.T) {
	_, messageSvc, bugRepo, tenant, db := newReportEnv(t)
	report := createPlainReport(t, bugRepo, tenant)
	otherTenant := seedTenant(t, db, "Globex", "Portal")
	ctx := context.Background()

	if _, err := messageSvc.Append(ctx, tenant.OrganizationID, report.ID, "Dana", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty body = %v, want ErrEmptyMessage", err)
	}
	if _, err := messageSvc.Append(ctx, otherTenant.OrganizationID, report.ID, "Dana", "hello"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("cross-org append = %v, want ErrReportNotFound", err)
	}
}
