package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/chuanghiduoc/progress-mailer/internal/dto"
	"github.com/chuanghiduoc/progress-mailer/internal/mailmerge"
	"github.com/chuanghiduoc/progress-mailer/internal/repository"
	"github.com/chuanghiduoc/progress-mailer/pkg/apperror"
	"github.com/chuanghiduoc/progress-mailer/pkg/async"
	"github.com/chuanghiduoc/progress-mailer/pkg/cache"
	"github.com/chuanghiduoc/progress-mailer/pkg/email"
	"github.com/chuanghiduoc/progress-mailer/pkg/metrics"
	"github.com/chuanghiduoc/progress-mailer/pkg/storage"
)

const runCachePrefix = "mail_run:"

// The recipient used by SendTest.
var testRecipient = mailmerge.Recipient{
	Name:           "Test Student",
	RegistrationNo: "TEST001",
	Semester:       "5",
	GPA:            "8.5",
	Credits:        "120",
}

type MailService interface {
	SendOne(ctx context.Context, student dto.StudentPayload) (*dto.SendEmailResponse, error)
	// SendBulk dispatches the batch and blocks until the run finishes.
	SendBulk(ctx context.Context, req dto.SendBulkRequest) (*dto.RunReport, error)
	// StartBulk dispatches the batch in the background.
	StartBulk(ctx context.Context, req dto.SendBulkRequest) (*dto.RunAcceptedResponse, error)
	GetRun(ctx context.Context, runID string) (*dto.RunReport, error)
	CancelRun(ctx context.Context, runID string) (*dto.RunReport, error)
	SendTest(ctx context.Context, addr string) (*mailmerge.Outcome, error)
	Preview(ctx context.Context, student dto.StudentPayload) (*mailmerge.Message, error)
	// Shutdown stops background runs and waits for their reports to be saved.
	Shutdown(ctx context.Context) error
}

type MailOptions struct {
	Pacing   time.Duration
	MaxBatch int
	RunTTL   time.Duration
	Clock    mailmerge.Clock
}

type mailService struct {
	renderer mailmerge.MessageRenderer
	sender   email.Sender
	students repository.StudentRepository
	cache    cache.Cache
	store    storage.Storage
	opts     MailOptions

	runs *runRegistry
	bg   async.Group
}

// NewMailService wires the dispatch pipeline. store may be nil, in which
// case finished reports live only in the cache.
func NewMailService(
	renderer mailmerge.MessageRenderer,
	sender email.Sender,
	students repository.StudentRepository,
	appCache cache.Cache,
	store storage.Storage,
	opts MailOptions,
) MailService {
	return &mailService{
		renderer: renderer,
		sender:   sender,
		students: students,
		cache:    appCache,
		store:    store,
		opts:     opts,
		runs:     newRunRegistry(),
	}
}

func (s *mailService) dispatcher(observe func(mailmerge.Outcome)) *mailmerge.Dispatcher {
	opts := []mailmerge.Option{
		mailmerge.WithObserver(func(o mailmerge.Outcome) {
			metrics.EmailsDispatchedTotal.WithLabelValues(string(o.Status)).Inc()
			if observe != nil {
				observe(o)
			}
		}),
	}
	if s.opts.Clock != nil {
		opts = append(opts, mailmerge.WithClock(s.opts.Clock))
	}
	return mailmerge.NewDispatcher(s.renderer, s.sender, opts...)
}

func (s *mailService) now() time.Time {
	if s.opts.Clock != nil {
		return s.opts.Clock.Now()
	}
	return time.Now()
}

func (s *mailService) SendOne(ctx context.Context, student dto.StudentPayload) (*dto.SendEmailResponse, error) {
	outcome := s.dispatcher(nil).DispatchOne(ctx, toRecipient(student))

	resp := &dto.SendEmailResponse{Outcome: outcome, StatusSync: dto.StatusSyncSkipped}
	if outcome.Delivered() && outcome.RowRef != "" {
		resp.StatusSync = s.syncStatuses(context.WithoutCancel(ctx), []mailmerge.Outcome{outcome})
	}
	return resp, nil
}

func (s *mailService) SendBulk(ctx context.Context, req dto.SendBulkRequest) (*dto.RunReport, error) {
	recipients, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &activeRun{id: uuid.NewString(), total: len(recipients), startedAt: s.now(), cancel: func() {}}
	return s.execute(ctx, run, recipients, s.pacing(req)), nil
}

func (s *mailService) StartBulk(ctx context.Context, req dto.SendBulkRequest) (*dto.RunAcceptedResponse, error) {
	recipients, err := s.resolveRecipients(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	run := &activeRun{id: uuid.NewString(), total: len(recipients), startedAt: s.now(), cancel: cancel}
	s.runs.add(run)
	pacing := s.pacing(req)

	metrics.RunsInFlight.Inc()
	s.bg.Go("bulk-run "+run.id, func() {
		defer metrics.RunsInFlight.Dec()
		defer s.runs.remove(run.id)
		defer cancel()
		s.execute(runCtx, run, recipients, pacing)
	})

	slog.Info("bulk run started", slog.String("run_id", run.id), slog.Int("total", run.total))
	return &dto.RunAcceptedResponse{RunID: run.id, Total: run.total}, nil
}

// execute dispatches, writes statuses back and persists the report.
func (s *mailService) execute(ctx context.Context, run *activeRun, recipients []mailmerge.Recipient, pacing time.Duration) *dto.RunReport {
	ledger, err := s.dispatcher(run.observe).Dispatch(ctx, recipients, pacing)
	if err != nil && !errors.Is(err, mailmerge.ErrCancelled) {
		slog.Error("bulk run aborted", slog.String("run_id", run.id), slog.Any("error", err))
	}

	// The run may have been cancelled; persistence must still happen.
	bg := context.WithoutCancel(ctx)

	report := newRunReport(run.id, ledger)
	report.StatusSync = s.syncStatuses(bg, ledger.Outcomes())

	metrics.DispatchRunsTotal.WithLabelValues(report.Status).Inc()
	metrics.DispatchRunDuration.Observe(ledger.FinishedAt.Sub(ledger.StartedAt).Seconds())

	s.persist(bg, report)
	return report
}

func (s *mailService) GetRun(ctx context.Context, runID string) (*dto.RunReport, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, apperror.NewBadRequest("invalid run id")
	}
	if run, ok := s.runs.get(runID); ok {
		return run.snapshot(), nil
	}

	var report dto.RunReport
	found, err := cache.GetJSON(ctx, s.cache, runCachePrefix+runID, &report)
	if err != nil {
		slog.Warn("failed to read run report from cache", slog.String("run_id", runID), slog.Any("error", err))
	}
	if found {
		return &report, nil
	}

	archived, err := s.loadArchived(ctx, runID)
	if err != nil {
		return nil, err
	}
	return archived, nil
}

func (s *mailService) CancelRun(ctx context.Context, runID string) (*dto.RunReport, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, apperror.NewBadRequest("invalid run id")
	}
	if run, ok := s.runs.get(runID); ok {
		run.cancel()
		slog.Info("bulk run cancellation requested", slog.String("run_id", runID))
		return run.snapshot(), nil
	}

	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return nil, apperror.NewConflict("run has already finished")
}

func (s *mailService) SendTest(ctx context.Context, addr string) (*mailmerge.Outcome, error) {
	r := testRecipient
	r.Email = addr
	outcome := s.dispatcher(nil).DispatchOne(ctx, r)
	return &outcome, nil
}

func (s *mailService) Preview(_ context.Context, student dto.StudentPayload) (*mailmerge.Message, error) {
	msg, err := s.renderer.Render(toRecipient(student))
	if err != nil {
		slog.Error("failed to render preview", slog.Any("error", err))
		return nil, apperror.NewInternal("failed to render message")
	}
	return &msg, nil
}

func (s *mailService) Shutdown(ctx context.Context) error {
	if n := s.runs.len(); n > 0 {
		slog.Info("cancelling background runs", slog.Int("count", n))
	}
	s.runs.cancelAll()
	return s.bg.Wait(ctx)
}

func (s *mailService) pacing(req dto.SendBulkRequest) time.Duration {
	if req.DelayMs != nil {
		return time.Duration(*req.DelayMs) * time.Millisecond
	}
	return s.opts.Pacing
}

func (s *mailService) resolveRecipients(ctx context.Context, req dto.SendBulkRequest) ([]mailmerge.Recipient, error) {
	if len(req.Students) > 0 && len(req.StudentIDs) > 0 {
		return nil, apperror.NewBadRequest("provide either students or student_ids, not both")
	}

	var recipients []mailmerge.Recipient
	if len(req.StudentIDs) > 0 {
		ids := uniqueIDs(req.StudentIDs)
		if s.opts.MaxBatch > 0 && len(ids) > s.opts.MaxBatch {
			return nil, apperror.NewBadRequest(fmt.Sprintf("batch exceeds the limit of %d students", s.opts.MaxBatch))
		}

		rows, err := s.students.GetByIDs(ctx, ids)
		if err != nil {
			slog.Error("failed to load students for run", slog.Any("error", err))
			return nil, apperror.NewInternal("failed to load students")
		}
		if len(rows) != len(ids) {
			missing := missingIDs(ids, rows)
			return nil, apperror.NewNotFoundWithDetails(
				fmt.Sprintf("students not found: %v", missing),
				map[string][]int64{"missing_ids": missing},
			)
		}

		recipients = make([]mailmerge.Recipient, len(rows))
		for i := range rows {
			recipients[i] = studentRecipient(&rows[i])
		}
	} else {
		recipients = make([]mailmerge.Recipient, len(req.Students))
		for i, p := range req.Students {
			recipients[i] = toRecipient(p)
		}
	}

	if len(recipients) == 0 {
		return nil, apperror.NewBadRequest("no students provided")
	}
	if s.opts.MaxBatch > 0 && len(recipients) > s.opts.MaxBatch {
		return nil, apperror.NewBadRequest(fmt.Sprintf("batch exceeds the limit of %d students", s.opts.MaxBatch))
	}
	return recipients, nil
}

// syncStatuses writes each outcome's status to its record. It reports the
// result instead of failing, since the emails have already gone out.
func (s *mailService) syncStatuses(ctx context.Context, outcomes []mailmerge.Outcome) string {
	at := s.now()
	updates := make([]repository.StatusUpdate, 0, len(outcomes))
	for _, o := range outcomes {
		if o.RowRef == "" {
			continue
		}
		id, err := strconv.ParseInt(o.RowRef, 10, 64)
		if err != nil {
			slog.Warn("ignoring non-numeric row reference", slog.String("row_ref", o.RowRef))
			continue
		}
		updates = append(updates, repository.StatusUpdate{ID: id, Status: statusText(o, at), At: at})
	}
	if len(updates) == 0 {
		return dto.StatusSyncSkipped
	}

	if err := s.students.UpdateStatuses(ctx, updates); err != nil {
		metrics.StatusSyncFailuresTotal.Inc()
		slog.Error("failed to write delivery statuses", slog.Int("count", len(updates)), slog.Any("error", err))
		return dto.StatusSyncFailed
	}
	return dto.StatusSyncOK
}

func (s *mailService) persist(ctx context.Context, report *dto.RunReport) {
	if err := cache.SetJSON(ctx, s.cache, runCachePrefix+report.RunID, report, s.opts.RunTTL); err != nil {
		slog.Error("failed to cache run report", slog.String("run_id", report.RunID), slog.Any("error", err))
	}
	if s.store == nil {
		return
	}

	data, err := json.Marshal(report)
	if err != nil {
		slog.Error("failed to encode run report", slog.String("run_id", report.RunID), slog.Any("error", err))
		return
	}
	if err := s.store.Put(ctx, archivePath(report.RunID), bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		slog.Error("failed to archive run report", slog.String("run_id", report.RunID), slog.Any("error", err))
	}
}

func (s *mailService) loadArchived(ctx context.Context, runID string) (*dto.RunReport, error) {
	if s.store == nil {
		return nil, apperror.NewNotFound("run not found")
	}

	rc, err := s.store.Get(ctx, archivePath(runID))
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, apperror.NewNotFound("run not found")
		}
		slog.Error("failed to read archived run", slog.String("run_id", runID), slog.Any("error", err))
		return nil, apperror.NewInternal("failed to load run")
	}
	defer rc.Close()

	var report dto.RunReport
	if err := json.NewDecoder(rc).Decode(&report); err != nil {
		return nil, apperror.NewInternal("failed to decode run report")
	}
	return &report, nil
}

func archivePath(runID string) string {
	return "runs/" + runID + ".json"
}

func newRunReport(runID string, ledger *mailmerge.Ledger) *dto.RunReport {
	status := dto.RunStateCompleted
	if ledger.Status == mailmerge.RunCancelled {
		status = dto.RunStateCancelled
	}
	finished := ledger.FinishedAt
	return &dto.RunReport{
		RunID:  runID,
		Status: status,
		Summary: dto.RunSummary{
			Total:     ledger.Total(),
			Delivered: len(ledger.Delivered),
			Failed:    len(ledger.Failed),
			Skipped:   ledger.Skipped,
		},
		Details:    ledger,
		StartedAt:  ledger.StartedAt,
		FinishedAt: &finished,
	}
}

func statusText(o mailmerge.Outcome, at time.Time) string {
	if o.Delivered() {
		return repository.StatusDelivered + " on " + at.Format("2006-01-02")
	}
	return repository.StatusFailed
}

func toRecipient(p dto.StudentPayload) mailmerge.Recipient {
	return mailmerge.Recipient{
		Name:           p.Name,
		RegistrationNo: p.RegistrationNo,
		Semester:       p.Semester,
		GPA:            p.GPA,
		Credits:        p.Credits,
		Email:          p.Email,
		RowRef:         p.RowRef,
	}
}

func studentRecipient(st *repository.Student) mailmerge.Recipient {
	return mailmerge.Recipient{
		Name:           st.Name,
		RegistrationNo: st.RegistrationNo,
		Semester:       st.Semester,
		GPA:            st.GPA,
		Credits:        st.Credits,
		Email:          st.Email,
		RowRef:         strconv.FormatInt(st.ID, 10),
	}
}

// uniqueIDs drops repeated ids, keeping first occurrences in order.
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func missingIDs(ids []int64, rows []repository.Student) []int64 {
	found := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		found[r.ID] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
