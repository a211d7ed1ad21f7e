package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/academic-standing/internal/models"
	"github.com/noah-isme/academic-standing/internal/repository"
)

// fakeAcademicStore is an in-memory stand-in for the academic tables shared
// by the record and history fakes.
type fakeAcademicStore struct {
	mu          sync.Mutex
	histories   map[string]models.AcademicHistory
	records     map[string]models.SemesterRecord
	created     []string
	enrollments []models.GradedEnrollment
	profiles    map[string]models.StudentProfile
	programs    map[string]models.Program
	semesters   map[string]bool
	clock       time.Time
	readDelay   time.Duration
	listDelay   time.Duration
}

func newFakeAcademicStore() *fakeAcademicStore {
	return &fakeAcademicStore{
		histories: make(map[string]models.AcademicHistory),
		records:   make(map[string]models.SemesterRecord),
		profiles:  make(map[string]models.StudentProfile),
		programs:  make(map[string]models.Program),
		semesters: make(map[string]bool),
		clock:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func recordKey(studentID, semesterID string) string {
	return studentID + "|" + semesterID
}

func (s *fakeAcademicStore) addStudent(id string, programID string, requiredCredits *int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile := models.StudentProfile{ID: id, FullName: "Student " + id, StudentNumber: "NIM-" + id}
	if programID != "" {
		pid := programID
		profile.ProgramID = &pid
		s.programs[programID] = models.Program{ID: programID, Name: "Program " + programID, RequiredCredits: requiredCredits}
	}
	s.profiles[id] = profile
}

func (s *fakeAcademicStore) addSemester(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.semesters[id] = true
}

func (s *fakeAcademicStore) addEnrollment(studentID, semesterID, year string, number int, code string, credits int, grade string, status models.EnrollmentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := grade
	s.enrollments = append(s.enrollments, models.GradedEnrollment{
		ID:             code + "-" + studentID + "-" + semesterID,
		StudentID:      studentID,
		SemesterID:     semesterID,
		Grade:          &g,
		Status:         status,
		CourseCode:     code,
		CourseName:     "Course " + code,
		CreditHours:    credits,
		AcademicYear:   year,
		SemesterNumber: number,
	})
}

func (s *fakeAcademicStore) history(studentID string) models.AcademicHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.histories[studentID]
}

func (s *fakeAcademicStore) record(studentID, semesterID string) models.SemesterRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[recordKey(studentID, semesterID)]
}

func (s *fakeAcademicStore) putRecord(record models.SemesterRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recordKey(record.StudentID, record.SemesterID)
	if record.ID == "" {
		record.ID = key
	}
	if _, ok := s.records[key]; !ok {
		s.created = append(s.created, key)
	}
	s.records[key] = record
}

func (s *fakeAcademicStore) FindProfile(ctx context.Context, studentID string) (*models.StudentProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

func (s *fakeAcademicStore) FindProgram(ctx context.Context, programID string) (*models.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	program, ok := s.programs[programID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &program, nil
}

func (s *fakeAcademicStore) SemesterExists(ctx context.Context, semesterID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.semesters[semesterID], nil
}

func (s *fakeAcademicStore) ListGradedBySemester(ctx context.Context, studentID, semesterID string) ([]models.GradedEnrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.GradedEnrollment
	for _, e := range s.enrollments {
		if e.StudentID != studentID || e.SemesterID != semesterID || e.Grade == nil {
			continue
		}
		if e.Status != models.EnrollmentStatusCompleted && e.Status != models.EnrollmentStatusActive {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *fakeAcademicStore) ListCompletedGraded(ctx context.Context, studentID string) ([]models.GradedEnrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []models.GradedEnrollment
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.Grade != nil && e.Status == models.EnrollmentStatusCompleted {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *fakeAcademicStore) FindByStudentID(ctx context.Context, studentID string) (*models.AcademicHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history, ok := s.histories[studentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &history, nil
}

// fakeRecordRepo implements the semester record persistence on the store.
type fakeRecordRepo struct {
	*fakeAcademicStore
}

func (r fakeRecordRepo) Create(ctx context.Context, record *models.SemesterRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(record.StudentID, record.SemesterID)
	record.ID = key
	r.clock = r.clock.Add(time.Minute)
	record.CreatedAt = r.clock
	record.UpdatedAt = r.clock
	r.records[key] = *record
	r.created = append(r.created, key)
	return nil
}

func (r fakeRecordRepo) FindByStudentAndSemester(ctx context.Context, studentID, semesterID string) (*models.SemesterRecord, error) {
	if r.readDelay > 0 {
		time.Sleep(r.readDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[recordKey(studentID, semesterID)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &record, nil
}

func (r fakeRecordRepo) ListByStudent(ctx context.Context, studentID string) ([]models.SemesterRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []models.SemesterRecord
	for _, key := range r.created {
		if record := r.records[key]; record.StudentID == studentID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r fakeRecordRepo) ListFinalizedWithGPA(ctx context.Context, studentID string) ([]models.SemesterRecord, error) {
	records, _ := r.ListByStudent(ctx, studentID)
	var result []models.SemesterRecord
	for _, record := range records {
		if record.IsFinalized && record.SemesterGPA.Valid {
			result = append(result, record)
		}
	}
	// The snapshot ages while the caller holds it.
	if r.listDelay > 0 {
		time.Sleep(r.listDelay)
	}
	return result, nil
}

func (r fakeRecordRepo) update(id string, apply func(record *models.SemesterRecord)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok || record.IsFinalized {
		return repository.ErrRecordLocked
	}
	apply(&record)
	r.records[id] = record
	return nil
}

func (r fakeRecordRepo) UpdateCounts(ctx context.Context, id string, counts models.SemesterCourseCounts) error {
	return r.update(id, func(record *models.SemesterRecord) {
		record.CoursesRegistered = counts.CoursesRegistered
		record.CoursesFailed = counts.CoursesFailed
		record.CoursesDropped = counts.CoursesDropped
		record.CoursesInProgress = counts.CoursesInProgress
	})
}

func (r fakeRecordRepo) SaveGPA(ctx context.Context, in *models.SemesterRecord) error {
	return r.update(in.ID, func(record *models.SemesterRecord) {
		record.CreditsAttempted = in.CreditsAttempted
		record.CreditsEarned = in.CreditsEarned
		record.CoursesCompleted = in.CoursesCompleted
		record.SemesterGPA = in.SemesterGPA
		record.TotalGradePoints = in.TotalGradePoints
	})
}

func (r fakeRecordRepo) SaveStanding(ctx context.Context, in *models.SemesterRecord) error {
	return r.update(in.ID, func(record *models.SemesterRecord) {
		record.AcademicStanding = in.AcademicStanding
		record.IsOnProbation = in.IsOnProbation
		record.ProbationCount = in.ProbationCount
	})
}

func (r fakeRecordRepo) MarkFinalized(ctx context.Context, id, finalizedBy string, at time.Time) error {
	return r.update(id, func(record *models.SemesterRecord) {
		record.IsFinalized = true
		record.FinalizedAt = &at
		record.FinalizedBy = &finalizedBy
	})
}

func (r fakeRecordRepo) MarkHistorySynced(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[id]
	if !ok || !record.IsFinalized {
		return sql.ErrNoRows
	}
	record.HistorySyncedAt = &at
	r.records[id] = record
	return nil
}

// fakeHistoryRepo implements the academic history persistence on the store.
type fakeHistoryRepo struct {
	*fakeAcademicStore
	levelUpdates int
}

func (r *fakeHistoryRepo) Create(ctx context.Context, history *models.AcademicHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history.ID = "hist-" + history.StudentID
	r.histories[history.StudentID] = *history
	return nil
}

func (r *fakeHistoryRepo) updateHistory(studentID string, apply func(history *models.AcademicHistory)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history, ok := r.histories[studentID]
	if !ok {
		return sql.ErrNoRows
	}
	apply(&history)
	r.histories[studentID] = history
	return nil
}

func (r *fakeHistoryRepo) UpdateCumulative(ctx context.Context, studentID string, totals models.CumulativeTotals) error {
	return r.updateHistory(studentID, func(h *models.AcademicHistory) {
		h.CumulativeGPA = totals.CumulativeGPA
		h.OverallCreditsAttempted = totals.OverallCreditsAttempted
		h.OverallCreditsEarned = totals.OverallCreditsEarned
		h.TotalSemestersCompleted = totals.TotalSemestersCompleted
	})
}

func (r *fakeHistoryRepo) UpdateLevel(ctx context.Context, studentID string, level int) (bool, error) {
	raised := false
	err := r.updateHistory(studentID, func(h *models.AcademicHistory) {
		if h.CurrentLevel >= level {
			return
		}
		h.CurrentLevel = level
		r.levelUpdates++
		raised = true
	})
	return raised, err
}

func (r *fakeHistoryRepo) UpdateStatus(ctx context.Context, studentID string, status models.AcademicStanding) error {
	return r.updateHistory(studentID, func(h *models.AcademicHistory) { h.CurrentStatus = status })
}

func (r *fakeHistoryRepo) UpdateCurrentSemester(ctx context.Context, studentID string, semester int) error {
	return r.updateHistory(studentID, func(h *models.AcademicHistory) { h.CurrentSemester = semester })
}

func (r *fakeHistoryRepo) MarkGraduated(ctx context.Context, studentID string, graduationDate time.Time) (bool, error) {
	marked := false
	err := r.updateHistory(studentID, func(h *models.AcademicHistory) {
		if h.HasGraduated {
			return
		}
		h.HasGraduated = true
		h.GraduationDate = &graduationDate
		marked = true
	})
	return marked, err
}

type academicFixture struct {
	store     *fakeAcademicStore
	records   fakeRecordRepo
	histories *fakeHistoryRepo
	semester  *SemesterRecordService
	history   *AcademicHistoryService
}

func newAcademicFixture() *academicFixture {
	store := newFakeAcademicStore()
	records := fakeRecordRepo{store}
	histories := &fakeHistoryRepo{fakeAcademicStore: store}
	historySvc := NewAcademicHistoryService(histories, records, store, nil, nil, nil, nil, nil, 0)
	semesterSvc := NewSemesterRecordService(records, store, histories, store, historySvc, nil, nil, nil, nil, nil)
	return &academicFixture{store: store, records: records, histories: histories, semester: semesterSvc, history: historySvc}
}

// seedHistory stores a history row directly, bypassing Create.
func (f *academicFixture) seedHistory(history models.AcademicHistory) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	if history.ID == "" {
		history.ID = "hist-" + history.StudentID
	}
	if history.CurrentStatus == "" {
		history.CurrentStatus = models.StandingGood
	}
	f.store.histories[history.StudentID] = history
}

// finalizedRecord builds a finalized record with the given totals.
func finalizedRecord(studentID, semesterID, points string, attempted, earned int) models.SemesterRecord {
	total := decimal.RequireFromString(points)
	gpa := decimal.Zero
	if attempted > 0 {
		gpa = total.Div(decimal.NewFromInt(int64(attempted))).Round(2)
	}
	return models.SemesterRecord{
		StudentID:        studentID,
		SemesterID:       semesterID,
		CreditsAttempted: attempted,
		CreditsEarned:    earned,
		TotalGradePoints: total,
		SemesterGPA:      decimal.NewNullDecimal(gpa),
		AcademicStanding: models.StandingGood,
		IsFinalized:      true,
	}
}
