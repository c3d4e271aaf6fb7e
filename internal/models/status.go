package models

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectDraft      ProjectStatus = "draft"
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// ProjectTransitions lists, for each status, the statuses a project may move
// to. Terminal statuses map to nothing.
var ProjectTransitions = map[ProjectStatus][]ProjectStatus{
	ProjectDraft:      {ProjectOpen, ProjectCancelled},
	ProjectOpen:       {ProjectInProgress, ProjectCancelled, ProjectDraft},
	ProjectInProgress: {ProjectCompleted, ProjectCancelled},
	ProjectCompleted:  {},
	ProjectCancelled:  {},
}

func (s ProjectStatus) Valid() bool {
	_, ok := ProjectTransitions[s]
	return ok
}

// CanTransitionTo reports whether the policy allows moving from s to next.
// Staying in the same status is always allowed.
func (s ProjectStatus) CanTransitionTo(next ProjectStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range ProjectTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationShortlisted ApplicationStatus = "shortlisted"
	ApplicationAccepted    ApplicationStatus = "accepted"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// ApplicationTransitions is the review policy. A decision (accepted or
// rejected) is final.
var ApplicationTransitions = map[ApplicationStatus][]ApplicationStatus{
	ApplicationPending:     {ApplicationShortlisted, ApplicationAccepted, ApplicationRejected},
	ApplicationShortlisted: {ApplicationPending, ApplicationAccepted, ApplicationRejected},
	ApplicationAccepted:    {},
	ApplicationRejected:    {},
}

func (s ApplicationStatus) Valid() bool {
	_, ok := ApplicationTransitions[s]
	return ok
}

func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range ApplicationTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
