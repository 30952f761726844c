package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/academy-lifecycle-api/internal/models"
	"github.com/noah-isme/academy-lifecycle-api/internal/repository"
	appErrors "github.com/noah-isme/academy-lifecycle-api/pkg/errors"
)

var (
	adminActor = &models.AuthContext{UserID: "admin-1", Role: models.RoleAdmin}
	tutorActor = &models.AuthContext{UserID: "tutor-1", Role: models.RoleTutor}
	fixedNow   = time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return fixedNow }

func feePtr(v float64) *float64 { return &v }

// world is an in-memory stand-in for the Postgres schema shared by the fake repositories.
type world struct {
	students    map[string]*models.Student
	tutors      map[string]models.Tutor
	enrollments map[string]models.Enrollment
	roster      []models.TutorStudent
	settlements map[string]models.Settlement
	alumni      map[string]*models.Alumnus
	cpd         map[string]map[int]models.CpdRecord
	payments    []models.SubscriptionPayment
	writes      int
}

func newWorld() *world {
	return &world{
		students:    map[string]*models.Student{},
		tutors:      map[string]models.Tutor{},
		enrollments: map[string]models.Enrollment{},
		settlements: map[string]models.Settlement{},
		alumni:      map[string]*models.Alumnus{},
		cpd:         map[string]map[int]models.CpdRecord{},
	}
}

func key(parts ...string) string { return strings.Join(parts, "|") }

func (w *world) addStudent(s models.Student) {
	if s.Version == 0 {
		s.Version = 1
	}
	w.students[s.ID] = &s
}

func (w *world) addTutor(id, name string) {
	w.tutors[id] = models.Tutor{ID: id, Name: name}
}

func (w *world) rosterOf(tutorID string, kind models.RosterKind) []string {
	var ids []string
	for _, e := range w.roster {
		if e.TutorID == tutorID && e.Roster == kind {
			ids = append(ids, e.StudentID)
		}
	}
	return ids
}

type enrollmentStore struct{ w *world }

func (s enrollmentStore) Get(ctx context.Context, courseID, studentID string) (*models.Enrollment, error) {
	e, ok := s.w.enrollments[key(courseID, studentID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

func (s enrollmentStore) ListByCourse(ctx context.Context, courseID string, status models.AssignmentStatus) ([]models.Enrollment, error) {
	out := []models.Enrollment{}
	for _, e := range s.w.enrollments {
		if e.CourseID == courseID && (status == "" || e.AssignmentStatus == status) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (s enrollmentStore) Upsert(ctx context.Context, e *models.Enrollment) error {
	k := key(e.CourseID, e.StudentID)
	stored, exists := s.w.enrollments[k]
	if e.Version == 0 {
		if exists {
			return repository.ErrDuplicate
		}
	} else if !exists || stored.Version != e.Version {
		return repository.ErrStaleVersion
	}
	e.Version++
	s.w.enrollments[k] = *e
	s.w.writes++
	return nil
}

func (s enrollmentStore) Assign(ctx context.Context, e *models.Enrollment, entry models.TutorStudent) error {
	if err := s.Upsert(ctx, e); err != nil {
		return err
	}
	reactivated := false
	for i, existing := range s.w.roster {
		if existing.TutorID == entry.TutorID && existing.StudentID == entry.StudentID && existing.CourseID == entry.CourseID {
			s.w.roster[i] = entry
			reactivated = true
		}
	}
	if !reactivated {
		s.w.roster = append(s.w.roster, entry)
	}
	sk := key(entry.StudentID, entry.CourseID, entry.TutorID)
	if _, ok := s.w.settlements[sk]; !ok {
		s.w.settlements[sk] = models.Settlement{StudentID: entry.StudentID, CourseID: entry.CourseID, TutorID: entry.TutorID, Status: models.SettlementPending}
	}
	return nil
}

func (s enrollmentStore) Release(ctx context.Context, e *models.Enrollment, tutorID string) error {
	if err := s.Upsert(ctx, e); err != nil {
		return err
	}
	for i, entry := range s.w.roster {
		if entry.TutorID == tutorID && entry.StudentID == e.StudentID && entry.CourseID == e.CourseID && entry.Roster == models.RosterActive {
			s.w.roster[i].Roster = models.RosterReleased
		}
	}
	return nil
}

type tutorStore struct{ w *world }

func (s tutorStore) FindByID(ctx context.Context, id string) (*models.Tutor, error) {
	t, ok := s.w.tutors[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &t, nil
}

func (s tutorStore) FindRosterEntry(ctx context.Context, tutorID, studentID, courseID string) (*models.TutorStudent, error) {
	for i := len(s.w.roster) - 1; i >= 0; i-- {
		entry := s.w.roster[i]
		if entry.TutorID == tutorID && entry.StudentID == studentID && (courseID == "" || entry.CourseID == courseID) {
			return &entry, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s tutorStore) ListRoster(ctx context.Context, tutorID string) ([]models.TutorStudent, error) {
	entries := []models.TutorStudent{}
	for _, e := range s.w.roster {
		if e.TutorID == tutorID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (s tutorStore) Count(ctx context.Context) (int, error) {
	return len(s.w.tutors), nil
}

type studentStore struct{ w *world }

func (s studentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	st, ok := s.w.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *st
	cp.Exams = st.Exams.Clone()
	return &cp, nil
}

func (s studentStore) UpdateExams(ctx context.Context, student *models.Student) error {
	stored, ok := s.w.students[student.ID]
	if !ok || stored.Version != student.Version {
		return repository.ErrStaleVersion
	}
	stored.Exams = student.Exams.Clone()
	stored.Version++
	student.Version = stored.Version
	s.w.writes++
	return nil
}

func (s studentStore) CountOnRosters(ctx context.Context) (int, error) {
	seen := map[string]struct{}{}
	for _, e := range s.w.roster {
		if e.Roster != models.RosterReleased {
			seen[e.StudentID] = struct{}{}
		}
	}
	return len(seen), nil
}

type settlementStore struct{ w *world }

func (s settlementStore) Find(ctx context.Context, studentID, courseID, tutorID string) (*models.Settlement, error) {
	st, ok := s.w.settlements[key(studentID, courseID, tutorID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &st, nil
}

func (s settlementStore) Upsert(ctx context.Context, settlement *models.Settlement) error {
	s.w.settlements[key(settlement.StudentID, settlement.CourseID, settlement.TutorID)] = *settlement
	s.w.writes++
	return nil
}

func (s settlementStore) ListLedger(ctx context.Context) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	for _, r := range s.w.roster {
		student := s.w.students[r.StudentID]
		entry := models.LedgerEntry{
			TutorID:     r.TutorID,
			TutorName:   s.w.tutors[r.TutorID].Name,
			StudentID:   r.StudentID,
			StudentName: student.FullName,
			CourseID:    r.CourseID,
			Roster:      r.Roster,
			CourseFee:   student.CourseFee,
		}
		if st, ok := s.w.settlements[key(r.StudentID, r.CourseID, r.TutorID)]; ok {
			status, amount, tx := st.Status, st.Amount, st.TransactionID
			entry.SettlementStatus = &status
			entry.SettlementAmount = &amount
			entry.TransactionID = &tx
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type alumniStore struct{ w *world }

func (s alumniStore) FindByID(ctx context.Context, id string) (*models.Alumnus, error) {
	a, ok := s.w.alumni[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (s alumniStore) FindByStudentID(ctx context.Context, studentID string) (*models.Alumnus, error) {
	for _, a := range s.w.alumni {
		if a.StudentID == studentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s alumniStore) Promote(ctx context.Context, params repository.PromoteParams) error {
	stored, ok := s.w.students[params.Student.ID]
	if !ok || stored.Version != params.Student.Version || stored.IsAlumni {
		return repository.ErrStaleVersion
	}
	if params.Alumnus.ID == "" {
		params.Alumnus.ID = uuid.NewString()
	}
	stored.Exams = params.Student.Exams.Clone()
	stored.IsAlumni = true
	stored.Version++
	cp := *params.Alumnus
	s.w.alumni[cp.ID] = &cp
	for i := range s.w.roster {
		if s.w.roster[i].StudentID == stored.ID && s.w.roster[i].Roster == models.RosterActive {
			at := params.Alumnus.GraduatedAt
			s.w.roster[i].Roster = models.RosterCertified
			s.w.roster[i].CertifiedAt = &at
		}
	}
	params.Student.IsAlumni = true
	params.Student.Version = stored.Version
	s.w.writes++
	return nil
}

func (s alumniStore) UpsertCpd(ctx context.Context, record *models.CpdRecord) error {
	if s.w.cpd[record.AlumnusID] == nil {
		s.w.cpd[record.AlumnusID] = map[int]models.CpdRecord{}
	}
	s.w.cpd[record.AlumnusID][record.Year] = *record
	return nil
}

func (s alumniStore) ListCpd(ctx context.Context, alumnusID string) ([]models.CpdRecord, error) {
	out := []models.CpdRecord{}
	for _, r := range s.w.cpd[alumnusID] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year > out[j].Year })
	return out, nil
}

func (s alumniStore) CreateSubscriptionPayment(ctx context.Context, payment *models.SubscriptionPayment) error {
	for _, p := range s.w.payments {
		if p.AlumnusID == payment.AlumnusID && p.Year == payment.Year {
			return repository.ErrDuplicateYear
		}
		if p.TransactionID == payment.TransactionID {
			return repository.ErrDuplicate
		}
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	s.w.payments = append(s.w.payments, *payment)
	return nil
}

func (s alumniStore) ListSubscriptionPayments(ctx context.Context, year int) ([]models.SubscriptionPayment, error) {
	out := []models.SubscriptionPayment{}
	for _, p := range s.w.payments {
		if p.Year == year {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s alumniStore) ListGraduatedBefore(ctx context.Context, cutoff time.Time) ([]models.AlumnusSummary, error) {
	out := []models.AlumnusSummary{}
	for _, a := range s.w.alumni {
		if a.GraduatedAt.Before(cutoff) {
			out = append(out, models.AlumnusSummary{ID: a.ID, FullName: a.FullName, GraduatedAt: a.GraduatedAt})
		}
	}
	return out, nil
}

// memoryCache backs CacheService in tests.
type memoryCache struct {
	items map[string][]byte
	gets  int
}

func newMemoryCache() *memoryCache { return &memoryCache{items: map[string][]byte{}} }

func (m *memoryCache) Get(ctx context.Context, k string, dest interface{}) error {
	m.gets++
	raw, ok := m.items[k]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCache) Set(ctx context.Context, k string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.items[k] = raw
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	for k := range m.items {
		if k == pattern || (strings.HasSuffix(pattern, "*") && strings.HasPrefix(k, prefix)) {
			delete(m.items, k)
		}
	}
	return nil
}

// services wires every domain service over one world.
type services struct {
	world        *world
	cache        *memoryCache
	metrics      *MetricsService
	enrollments  *EnrollmentService
	assignments  *AssignmentService
	settlements  *SettlementService
	graduation   *GraduationService
	subscription *SubscriptionService
}

func newServices() *services {
	w := newWorld()
	mc := newMemoryCache()
	metrics := NewMetricsService()
	cache := NewCacheService(mc, metrics, time.Minute, nil, true)

	svc := &services{world: w, cache: mc, metrics: metrics}
	svc.enrollments = NewEnrollmentService(enrollmentStore{w}, studentStore{w}, metrics, nil, nil)
	svc.assignments = NewAssignmentService(AssignmentServiceParams{Repo: enrollmentStore{w}, Tutors: tutorStore{w}, Cache: cache, Metrics: metrics})
	svc.assignments.now = fixedClock
	svc.settlements = NewSettlementService(SettlementServiceParams{Repo: settlementStore{w}, Rosters: tutorStore{w}, Students: studentStore{w}, Cache: cache, Metrics: metrics})
	svc.settlements.now = fixedClock
	svc.graduation = NewGraduationService(GraduationServiceParams{Students: studentStore{w}, Alumni: alumniStore{w}, Cache: cache, Metrics: metrics})
	svc.graduation.now = fixedClock
	svc.subscription = NewSubscriptionService(SubscriptionServiceParams{Repo: alumniStore{w}, Cache: cache, Metrics: metrics})
	svc.subscription.now = fixedClock
	return svc
}
