package attendance

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"classsight/internal/logger"
	"classsight/internal/metrics"
	"classsight/internal/queue"
	"classsight/internal/schedule"
)

// CamEventType tags camera events on the queue.
const CamEventType = "cam_event"

// Service implements the teacher-facing operations on top of a Store.
type Service struct {
	store    Store
	resolver *schedule.Resolver
	events   queue.Publisher
	log      zerolog.Logger
}

// NewService creates a service. A nil events publisher discards events.
func NewService(store Store, resolver *schedule.Resolver, events queue.Publisher) *Service {
	if resolver == nil {
		resolver = schedule.NewResolver(nil, nil)
	}
	if events == nil {
		events = queue.Discard{}
	}
	return &Service{store: store, resolver: resolver, events: events, log: logger.Get()}
}

// Teacher returns the teacher owning an external identity key.
func (s *Service) Teacher(ctx context.Context, uid string) (Teacher, error) {
	if uid == "" {
		return Teacher{}, ValidationError{Field: "firebase_uid", Message: "required"}
	}
	t, err := s.store.TeacherByUID(ctx, uid)
	return t, s.observe("teacher lookup", err)
}

// Classes lists a teacher's classes for the effective weekday. fakeTime, when
// non-empty, simulates "now" (see schedule.ParseOverride).
func (s *Service) Classes(ctx context.Context, teacherID int64, fakeTime string) ([]ClassSlot, error) {
	weekday, err := s.resolver.Weekday(fakeTime)
	if err != nil {
		return nil, err
	}
	classes, err := s.store.ClassesOn(ctx, teacherID, weekday)
	return classes, s.observe("class lookup", err)
}

// ClassStudents returns the class roster with statuses for date, or for
// today when date is empty.
func (s *Service) ClassStudents(ctx context.Context, classID int64, date string) (Roster, error) {
	if date == "" {
		date = s.resolver.Today()
	} else if err := schedule.ValidateDate(date); err != nil {
		return Roster{}, err
	}

	section, err := s.store.ClassSection(ctx, classID)
	if err != nil {
		return Roster{}, s.observe("section lookup", err)
	}
	students, err := s.store.Roster(ctx, classID, section, date)
	if err != nil {
		return Roster{}, s.observe("roster", err)
	}
	return Roster{Students: students, DateUsed: date}, nil
}

// RecordCamEvent appends a raw sighting and forwards it to the event queue.
// Queue failures are logged and do not fail the call.
func (s *Service) RecordCamEvent(ctx context.Context, cam Camera, classID int64, usn string) (CamEvent, error) {
	if usn == "" {
		return CamEvent{}, ValidationError{Field: "student_usn", Message: "required"}
	}
	if err := s.store.AppendCamEvent(ctx, cam, classID, usn); err != nil {
		return CamEvent{}, s.observe(cam.String()+" insert", err)
	}
	metrics.CamEvents.WithLabelValues(cam.String()).Inc()

	evt := CamEvent{
		ID:         uuid.NewString(),
		Camera:     cam.String(),
		ClassID:    classID,
		StudentUSN: usn,
		SeenAt:     s.resolver.Now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err == nil {
		err = s.events.Publish(ctx, queue.Message{Type: CamEventType, Body: body})
	}
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", evt.ID).Str("camera", evt.Camera).Msg("cam event publish failed")
	}
	return evt, nil
}

// SubmitAttendance makes records the complete attendance of classID for
// today, discarding any earlier submission for the same day.
func (s *Service) SubmitAttendance(ctx context.Context, classID int64, records []Record) (SubmitResult, error) {
	for i, rec := range records {
		if strings.TrimSpace(rec.StudentUSN) == "" {
			return SubmitResult{}, ValidationError{Field: recordField(i, "student_usn"), Message: "required"}
		}
		if rec.Status == "" {
			return SubmitResult{}, ValidationError{Field: recordField(i, "status"), Message: "required"}
		}
	}

	today := s.resolver.Today()
	if err := s.store.ReplaceAttendance(ctx, classID, today, records); err != nil {
		return SubmitResult{}, s.observe("attendance submit", err)
	}
	metrics.Submissions.Inc()
	metrics.RowsWritten.Add(float64(len(records)))
	return SubmitResult{Rows: len(records), Date: today}, nil
}

// RevokeAttendance deletes today's attendance for classID. It succeeds when
// there was nothing to delete.
func (s *Service) RevokeAttendance(ctx context.Context, classID int64) (string, error) {
	today := s.resolver.Today()
	if err := s.store.DeleteAttendance(ctx, classID, today); err != nil {
		return "", s.observe("attendance revoke", err)
	}
	metrics.Revocations.Inc()
	return today, nil
}

// Healthy reports store reachability.
func (s *Service) Healthy(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) observe(op string, err error) error {
	if err != nil && !errors.Is(err, ErrNotFound) {
		metrics.StoreErrors.WithLabelValues(op).Inc()
	}
	return err
}

func recordField(i int, name string) string {
	return "records[" + strconv.Itoa(i) + "]." + name
}
