package scoring

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Profile is the static per-task assessment metadata. Profiles are data,
// not logic: the table below is the deployment's task catalog.
// swagger:model ScoringProfile
type Profile struct {
	TotalQuestions int        `json:"totalQuestions"`
	PassingScore   int        `json:"passingScore"`
	Difficulty     Difficulty `json:"difficulty"`
	MaxAttempts    int        `json:"maxAttempts"`
	Description    string     `json:"description"`
}

const (
	defaultPassingScore = 80
	defaultMaxAttempts  = 3
)

var profiles = map[string]Profile{
	"Fintech 101": {
		TotalQuestions: 20,
		Difficulty:     Beginner,
		Description:    "Foundations of the product, payments vocabulary and the company glossary.",
	},
	"Compliance Essentials": {
		TotalQuestions: 15,
		Difficulty:     Beginner,
		Description:    "Mandatory compliance training for all new hires.",
	},
	"Security Awareness": {
		TotalQuestions: 20,
		Difficulty:     Intermediate,
		Description:    "Phishing, credential hygiene and incident reporting basics.",
	},
	"AML Fundamentals": {
		TotalQuestions: 25,
		Difficulty:     Intermediate,
		Description:    "Anti-money-laundering rules and escalation paths.",
	},
	"Data Privacy & GDPR": {
		TotalQuestions: 20,
		Difficulty:     Intermediate,
		Description:    "Handling personal data across products and regions.",
	},
	"Payments Architecture Deep Dive": {
		TotalQuestions: 30,
		Difficulty:     Advanced,
		Description:    "Ledger, settlement and reconciliation internals.",
	},
	"Incident Response Drill": {
		TotalQuestions: 15,
		Difficulty:     Advanced,
		Description:    "On-call escalation and postmortem procedure.",
	},
}

// Lookup resolves the scoring profile for a task title, filling in the
// fixed passing score and the default attempt cap.
func Lookup(taskTitle string) (Profile, bool) {
	p, ok := profiles[taskTitle]
	if !ok {
		return Profile{}, false
	}
	if p.PassingScore == 0 {
		p.PassingScore = defaultPassingScore
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	return p, true
}
