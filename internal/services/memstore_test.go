package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"io/fs"
	"mime/multipart"
	"sort"
	"sync"
	"time"

	"freelance-marketplace-backend/internal/errs"
	"freelance-marketplace-backend/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// memStore is an in-memory stand-in for database.Client with the same
// cascade and uniqueness rules as the schema.
type memStore struct {
	mu sync.Mutex

	clock time.Time

	projects     map[uuid.UUID]*models.Project
	likes        map[uuid.UUID]map[uuid.UUID]bool
	saves        map[uuid.UUID]map[uuid.UUID]bool
	applications map[uuid.UUID]*models.Application
	comments     map[uuid.UUID]*models.Comment
	commentLikes map[uuid.UUID]map[uuid.UUID]bool

	outbox        []*outboxRow
	notifications map[uuid.UUID]*models.Notification
	activities    []models.Activity

	// hideApplied makes HasApplied lie, as when two submits race.
	hideApplied bool
	// failMaterialize fails that many MaterializeEvent calls.
	failMaterialize int
	// beforeWrite, when set, runs once before the next status write takes
	// the lock, letting a test change the row between read and write.
	beforeWrite func(m *memStore)
}

type outboxRow struct {
	event     models.Event
	attempts  int
	lastError string
	delivered bool
}

func newMemStore() *memStore {
	return &memStore{
		clock:         time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
		projects:      map[uuid.UUID]*models.Project{},
		likes:         map[uuid.UUID]map[uuid.UUID]bool{},
		saves:         map[uuid.UUID]map[uuid.UUID]bool{},
		applications:  map[uuid.UUID]*models.Application{},
		comments:      map[uuid.UUID]*models.Comment{},
		commentLikes:  map[uuid.UUID]map[uuid.UUID]bool{},
		notifications: map[uuid.UUID]*models.Notification{},
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) enqueue(events []models.Event) {
	for _, e := range events {
		e.CreatedAt = m.tick()
		m.outbox = append(m.outbox, &outboxRow{event: e})
	}
}

func (m *memStore) decorate(p *models.Project, viewer uuid.UUID) *models.Project {
	cp := *p
	cp.Skills = append([]string{}, p.Skills...)
	cp.Attachments = append(models.Attachments{}, p.Attachments...)
	cp.LikeCount = int64(len(m.likes[p.ID]))
	cp.SaveCount = int64(len(m.saves[p.ID]))
	cp.LikedByMe = viewer != uuid.Nil && m.likes[p.ID][viewer]
	cp.SavedByMe = viewer != uuid.Nil && m.saves[p.ID][viewer]
	return &cp
}

// ProjectStore

func (m *memStore) CreateProject(_ context.Context, p *models.Project, events []models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = m.tick()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	m.projects[p.ID] = &cp
	m.enqueue(events)
	return nil
}

func (m *memStore) GetProject(_ context.Context, id, viewer uuid.UUID) (*models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return m.decorate(p, viewer), nil
}

func (m *memStore) ListProjects(_ context.Context, f models.ProjectFilter) ([]models.Project, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []models.Project
	for _, p := range m.projects {
		if feedMatches(f, p) {
			matched = append(matched, *m.decorate(p, f.Viewer))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.Sort {
		case models.SortBudgetHigh:
			return a.Budget > b.Budget
		case models.SortBudgetLow:
			return a.Budget < b.Budget
		case models.SortViews:
			return a.Views > b.Views
		case models.SortDeadline:
			if a.Deadline == nil || b.Deadline == nil {
				return a.Deadline != nil
			}
			return a.Deadline.Before(*b.Deadline)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := len(matched)
	start := f.Offset()
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

// feedMatches applies the feed predicates of f to p, mirroring the WHERE
// clause built by database.BuildFeedQuery.
func feedMatches(f models.ProjectFilter, p *models.Project) bool {
	if p.Status != models.ProjectOpen || p.Visibility == models.VisibilityPrivate {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinBudget != nil && p.Budget < *f.MinBudget {
		return false
	}
	if f.MaxBudget != nil && p.Budget > *f.MaxBudget {
		return false
	}
	if len(f.Skills) == 0 {
		return true
	}
	for _, want := range f.Skills {
		for _, have := range p.Skills {
			if want == have {
				return true
			}
		}
	}
	return false
}

func (m *memStore) ListProjectsByClient(_ context.Context, clientID uuid.UUID) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Project{}
	for _, p := range m.projects {
		if p.ClientID == clientID {
			out = append(out, *m.decorate(p, clientID))
		}
	}
	return out, nil
}

func (m *memStore) ListSavedProjects(_ context.Context, userID uuid.UUID) ([]models.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Project{}
	for id, users := range m.saves {
		if users[userID] {
			out = append(out, *m.decorate(m.projects[id], userID))
		}
	}
	return out, nil
}

func (m *memStore) runBeforeWrite() {
	if hook := m.beforeWrite; hook != nil {
		m.beforeWrite = nil
		hook(m)
	}
}

func (m *memStore) UpdateProject(_ context.Context, p *models.Project, prev models.ProjectStatus, events []models.Event) error {
	m.runBeforeWrite()
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.projects[p.ID]
	if !ok || stored.Status != prev {
		return errs.ErrStaleWrite
	}
	p.UpdatedAt = m.tick()
	cp := *p
	m.projects[p.ID] = &cp
	m.enqueue(events)
	return nil
}

func (m *memStore) DeleteProject(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.projects, id)
	delete(m.likes, id)
	delete(m.saves, id)
	for aid, a := range m.applications {
		if a.ProjectID == id {
			delete(m.applications, aid)
		}
	}
	for cid, c := range m.comments {
		if c.ProjectID == id {
			delete(m.comments, cid)
			delete(m.commentLikes, cid)
		}
	}
	return nil
}

func (m *memStore) ApplicationAttachments(_ context.Context, projectID uuid.UUID) ([]models.Attachment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Attachment
	for _, a := range m.applications {
		if a.ProjectID == projectID {
			out = append(out, a.Attachments...)
		}
	}
	return out, nil
}

func (m *memStore) IncrementViews(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	p.Views++
	return p.Views, nil
}

func (m *memStore) IncrementShares(_ context.Context, id uuid.UUID, events []models.Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return 0, sql.ErrNoRows
	}
	p.Shares++
	m.enqueue(events)
	return p.Shares, nil
}

func (m *memStore) toggle(set map[uuid.UUID]map[uuid.UUID]bool, id, user uuid.UUID, onAdd []models.Event) (bool, int64) {
	if set[id] == nil {
		set[id] = map[uuid.UUID]bool{}
	}
	if set[id][user] {
		delete(set[id], user)
		return false, int64(len(set[id]))
	}
	set[id][user] = true
	m.enqueue(onAdd)
	return true, int64(len(set[id]))
}

func (m *memStore) ToggleLike(_ context.Context, projectID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return false, 0, sql.ErrNoRows
	}
	added, n := m.toggle(m.likes, projectID, userID, onAdd)
	return added, n, nil
}

func (m *memStore) ToggleSave(_ context.Context, projectID, userID uuid.UUID, onAdd []models.Event) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[projectID]; !ok {
		return false, 0, sql.ErrNoRows
	}
	added, n := m.toggle(m.saves, projectID, userID, onAdd)
	return added, n, nil
}

func (m *memStore) CreateComment(_ context.Context, cm *models.Comment, events []models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cm.CreatedAt = m.tick()
	cp := *cm
	m.comments[cm.ID] = &cp
	m.enqueue(events)
	return nil
}

func (m *memStore) GetComment(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *c
	cp.LikeCount = int64(len(m.commentLikes[id]))
	return &cp, nil
}

func (m *memStore) ListComments(_ context.Context, projectID uuid.UUID, includeHidden bool, limit, offset int) ([]models.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Comment{}
	for _, c := range m.comments {
		if c.ProjectID == projectID && (includeHidden || !c.IsHidden) {
			cp := *c
			cp.LikeCount = int64(len(m.commentLikes[c.ID]))
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		return []models.Comment{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ToggleCommentLike(_ context.Context, commentID, userID uuid.UUID) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	added, n := m.toggle(m.commentLikes, commentID, userID, nil)
	return added, n, nil
}

func (m *memStore) SetCommentHidden(_ context.Context, id uuid.UUID, hidden bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return sql.ErrNoRows
	}
	c.IsHidden = hidden
	return nil
}

// ApplicationStore

func (m *memStore) CreateApplication(_ context.Context, a *models.Application, events []models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.applications {
		if existing.ProjectID == a.ProjectID && existing.FreelancerID == a.FreelancerID {
			return &pq.Error{Code: "23505", Constraint: "applications_project_freelancer_key"}
		}
	}
	p, ok := m.projects[a.ProjectID]
	if !ok {
		return &pq.Error{Code: "23503"}
	}
	a.CreatedAt = m.tick()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	m.applications[a.ID] = &cp
	p.ApplicationCount++
	m.enqueue(events)
	return nil
}

func (m *memStore) HasApplied(_ context.Context, projectID, freelancerID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hideApplied {
		return false, nil
	}
	for _, a := range m.applications {
		if a.ProjectID == projectID && a.FreelancerID == freelancerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CountApplicationsSince(_ context.Context, freelancerID uuid.UUID, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.applications {
		if a.FreelancerID == freelancerID && !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) withProject(a *models.Application) *models.Application {
	cp := *a
	if p, ok := m.projects[a.ProjectID]; ok {
		s := p.Summary()
		cp.Project = &s
	}
	return &cp
}

func (m *memStore) GetApplication(_ context.Context, id uuid.UUID) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return m.withProject(a), nil
}

func (m *memStore) sortedApplications(keep func(*models.Application) bool) []models.Application {
	out := []models.Application{}
	for _, a := range m.applications {
		if keep(a) {
			out = append(out, *m.withProject(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListApplicationsForProject(_ context.Context, projectID uuid.UUID, includeArchived bool) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedApplications(func(a *models.Application) bool {
		return a.ProjectID == projectID && (includeArchived || !a.IsArchived)
	}), nil
}

func (m *memStore) ListApplicationsByFreelancer(_ context.Context, freelancerID uuid.UUID) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedApplications(func(a *models.Application) bool {
		return a.FreelancerID == freelancerID
	}), nil
}

func (m *memStore) UpdateApplicationStatus(_ context.Context, a *models.Application, prev models.ApplicationStatus, assign bool, events []models.Event) error {
	m.runBeforeWrite()
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.applications[a.ID]
	if !ok || stored.Status != prev {
		return errs.ErrStaleWrite
	}
	stored.Status = a.Status
	stored.ClientNotes = a.ClientNotes
	stored.UpdatedAt = m.tick()
	if assign {
		if p := m.projects[a.ProjectID]; p != nil && p.Status == models.ProjectOpen {
			p.Status = models.ProjectInProgress
			freelancer := a.FreelancerID
			p.AssignedFreelancer = &freelancer
		}
	}
	m.enqueue(events)
	return nil
}

func (m *memStore) SetApplicationArchived(_ context.Context, id uuid.UUID, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.applications[id]
	if !ok {
		return sql.ErrNoRows
	}
	a.IsArchived = archived
	return nil
}

// NotificationStore

func (m *memStore) ListNotifications(_ context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID && (!unreadOnly || !n.Read) {
			out = append(out, *n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset > len(out) {
		return []models.Notification{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CountUnreadNotifications(_ context.Context, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (m *memStore) MarkNotificationRead(_ context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return nil, sql.ErrNoRows
	}
	n.Read = true
	now := m.tick()
	n.ReadAt = &now
	cp := *n
	return &cp, nil
}

func (m *memStore) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, n := range m.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

func (m *memStore) DeleteNotification(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok || n.UserID != userID {
		return sql.ErrNoRows
	}
	delete(m.notifications, id)
	return nil
}

// ActivityStore

func (m *memStore) activitiesWhere(keep func(models.Activity) bool, limit, offset int) []models.Activity {
	out := []models.Activity{}
	for i := len(m.activities) - 1; i >= 0; i-- {
		if keep(m.activities[i]) {
			out = append(out, m.activities[i])
		}
	}
	if offset > len(out) {
		return []models.Activity{}
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memStore) ListActivitiesByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activitiesWhere(func(a models.Activity) bool { return a.UserID == userID }, limit, offset), nil
}

func (m *memStore) ListActivitiesByProject(_ context.Context, projectID uuid.UUID, limit, offset int) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activitiesWhere(func(a models.Activity) bool {
		return a.ProjectID != nil && *a.ProjectID == projectID
	}, limit, offset), nil
}

// OutboxStore

func (m *memStore) PendingEvents(_ context.Context, limit, maxAttempts int) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, row := range m.outbox {
		if len(out) == limit {
			break
		}
		if row.delivered || row.attempts >= maxAttempts {
			continue
		}
		e := row.event
		e.Attempts = row.attempts
		e.LastError = row.lastError
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) CountPendingEvents(_ context.Context, maxAttempts int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, row := range m.outbox {
		if !row.delivered && row.attempts < maxAttempts {
			n++
		}
	}
	return n, nil
}

func (m *memStore) MaterializeEvent(_ context.Context, e models.Event) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failMaterialize > 0 {
		m.failMaterialize--
		return false, errors.New("connection reset")
	}
	switch e.Kind {
	case models.EventNotification:
		if _, ok := m.notifications[e.ID]; ok {
			return false, nil
		}
		n := *e.Notification
		n.ID = e.ID
		n.CreatedAt = e.CreatedAt
		m.notifications[e.ID] = &n
	case models.EventActivity:
		for _, a := range m.activities {
			if a.ID == e.ID {
				return false, nil
			}
		}
		a := *e.Activity
		a.ID = e.ID
		a.CreatedAt = e.CreatedAt
		m.activities = append(m.activities, a)
	}
	return true, nil
}

func (m *memStore) row(id uuid.UUID) *outboxRow {
	for _, row := range m.outbox {
		if row.event.ID == id {
			return row
		}
	}
	return nil
}

func (m *memStore) MarkEventDelivered(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.row(id); row != nil {
		row.delivered = true
	}
	return nil
}

func (m *memStore) MarkEventFailed(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row := m.row(id); row != nil {
		row.attempts++
		row.lastError = reason
	}
	return nil
}

func (m *memStore) PurgeDeliveredEvents(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*outboxRow
	var purged int64
	for _, row := range m.outbox {
		if row.delivered && row.event.CreatedAt.Before(before) {
			purged++
			continue
		}
		kept = append(kept, row)
	}
	m.outbox = kept
	return purged, nil
}

// pendingNotifications lists undelivered notification events.
func (m *memStore) pendingNotifications() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, row := range m.outbox {
		if !row.delivered && row.event.Notification != nil {
			out = append(out, *row.event.Notification)
		}
	}
	return out
}

func (m *memStore) pendingActivities() []models.Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Activity
	for _, row := range m.outbox {
		if !row.delivered && row.event.Activity != nil {
			out = append(out, *row.event.Activity)
		}
	}
	return out
}

// memFiles is an AttachmentStore over a map.
type memFiles struct {
	mu      sync.Mutex
	content map[string][]byte
	removed []string
}

func newMemFiles() *memFiles {
	return &memFiles{content: map[string][]byte{}}
}

func (f *memFiles) SaveAll(_ context.Context, dir string, files []*multipart.FileHeader) ([]models.Attachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Attachment{}
	for _, fh := range files {
		p := dir + "/" + fh.Filename
		f.content[p] = []byte(fh.Filename)
		out = append(out, models.Attachment{Filename: fh.Filename, OriginalName: fh.Filename, Path: p, Size: fh.Size})
	}
	return out, nil
}

func (f *memFiles) put(a models.Attachment, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[a.Path] = data
}

func (f *memFiles) Open(_ context.Context, p string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.content[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *memFiles) Remove(_ context.Context, attachments []models.Attachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range attachments {
		delete(f.content, a.Path)
		f.removed = append(f.removed, a.Path)
	}
	return nil
}
