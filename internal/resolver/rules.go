package resolver

import "github.com/hpungsan/stalker/internal/activity"

// Rule names, also reported in Decision.Rule.
const (
	RuleOverride    = "override"
	RuleReservation = "reservation"
	RuleMusicApp    = "music_app"
	RuleMusicEvent  = "music_event"
	RuleTracking    = "tracking"
	RuleClassEvent  = "class_event"
	RuleCall        = "call"
	RuleProgramming = "programming"
	RuleDesign      = "design"
	RuleWriting     = "writing"
	RuleGame        = "game"
	RuleNowPlaying  = "now_playing"
	RuleMealEvent   = "meal_event"
	RuleSleep       = "sleep"
	RuleDesktop     = "desktop"
	RuleMobile      = "mobile"
	RuleAway        = "away"
)

// Rule is one step of the cascade.
type Rule struct {
	Name     string
	Match    func(*Facts) bool
	Activity activity.Activity

	// Effect, when set, is requested alongside the activity.
	Effect EffectKind
}

// Keyword and membership sets.
var (
	MusicApps          = []string{"ableton", "musescore", "max"}
	MusicKeywords      = []string{"cello", "rehearsal"}
	ClassKeywords      = []string{"lesson", "class"}
	CallDomains        = []string{"meet.google.com", "voice.google.com", "zoom.us"}
	ProgrammingApps    = []string{"vscode", "terminal"}
	ProgrammingDomains = []string{"github.com", "replit.com", "github.dev", "vscode.dev"}
	DesignApps         = []string{"figma"}
	DesignDomains      = []string{"figma.com"}
	WritingDomains     = []string{"docs.google.com", "app.grammarly.com"}
	GameApps           = []string{"minecraft", "steam"}
	MealKeywords       = []string{"dinner", "lunch", "breakfast"}
)

// Rules is the cascade, highest priority first. The manual override is
// checked before any of these.
var Rules = []Rule{
	{
		Name:     RuleReservation,
		Match:    func(f *Facts) bool { return f.Input.Polling.Reservation.InReservation },
		Activity: activity.Flying,
	},
	{
		Name:     RuleMusicApp,
		Match:    func(f *Facts) bool { return f.AnyApp(MusicApps...) },
		Activity: activity.MakingMusic,
	},
	{
		Name:     RuleMusicEvent,
		Match:    func(f *Facts) bool { return f.EventContains(MusicKeywords...) },
		Activity: activity.MakingMusic,
	},
	{
		Name:     RuleTracking,
		Match:    func(f *Facts) bool { return f.Input.Polling.Tracking.Tracking },
		Activity: activity.Working,
	},
	{
		Name:     RuleClassEvent,
		Match:    func(f *Facts) bool { return f.EventContains(ClassKeywords...) },
		Activity: activity.InClass,
	},
	{
		Name: RuleCall,
		Match: func(f *Facts) bool {
			cal := f.Input.Polling.Calendar
			return f.AnyDomain(CallDomains...) ||
				IsCallTitle(cal.EventName) ||
				cal.IsVideoMeeting ||
				f.Input.InCall
		},
		Activity: activity.OnCall,
	},
	{
		Name: RuleProgramming,
		Match: func(f *Facts) bool {
			return f.AnyApp(ProgrammingApps...) || f.AnyDomain(ProgrammingDomains...)
		},
		Activity: activity.Programming,
	},
	{
		Name:     RuleDesign,
		Match:    func(f *Facts) bool { return f.AnyApp(DesignApps...) || f.AnyDomain(DesignDomains...) },
		Activity: activity.Designing,
	},
	{
		Name:     RuleWriting,
		Match:    func(f *Facts) bool { return f.AnyDomain(WritingDomains...) },
		Activity: activity.Writing,
	},
	{
		Name:     RuleGame,
		Match:    func(f *Facts) bool { return f.AnyApp(GameApps...) },
		Activity: activity.Gaming,
	},
	{
		Name:     RuleNowPlaying,
		Match:    func(f *Facts) bool { return f.Input.Polling.Music.NowPlaying },
		Activity: activity.Listening,
	},
	{
		Name:     RuleMealEvent,
		Match:    func(f *Facts) bool { return f.EventContains(MealKeywords...) },
		Activity: activity.Away,
	},
	{
		Name:     RuleSleep,
		Match:    func(f *Facts) bool { return f.sleepy },
		Activity: activity.Sleeping,
		Effect:   CreateSleepOverride,
	},
	{
		Name:     RuleDesktop,
		Match:    func(f *Facts) bool { return f.desktopFresh },
		Activity: activity.OnComputer,
	},
	{
		Name:     RuleMobile,
		Match:    func(f *Facts) bool { return f.mobileFresh },
		Activity: activity.OnPhone,
	},
	{
		Name:     RuleAway,
		Match:    func(*Facts) bool { return true },
		Activity: activity.Away,
	},
}
