package award

// Task arguments, as stored in the queue.
type (
	LearnerArgs struct {
		Username string `json:"username" validate:"required,username"`
	}

	CourseArgs struct {
		Username  string `json:"username" validate:"required,username"`
		CourseKey string `json:"course_key" validate:"required,coursekey"`
	}

	CourseConfigArgs struct {
		CourseKey string `json:"course_key" validate:"required,coursekey"`
	}

	InvalidateArgs struct {
		Username  string `json:"username" validate:"required,username"`
		CourseKey string `json:"course_key" validate:"required,coursekey"`
		AttemptID string `json:"attempt_id"`
		Reason    string `json:"reason"`
	}

	GenerateArgs struct {
		Username    string `json:"username" validate:"required,username"`
		CourseKey   string `json:"course_key" validate:"required,coursekey"`
		ForcedGrade string `json:"forced_grade,omitempty" validate:"max=5"`
		Insecure    bool   `json:"insecure,omitempty"`
	}
)
