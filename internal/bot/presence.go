package bot

import (
	"math/rand"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	zlog "github.com/rs/zerolog/log"
)

type ambientActivity struct {
	label    string
	duration time.Duration
	kind     discordgo.ActivityType
}

// The ambient rotation is the Morrowind soundtrack plus a few in-character
// vignettes. Each entry carries its own display duration so the status flips
// roughly when the piece would end.
var ambientActivities = []ambientActivity{
	{"Nerevar Rising", 114 * time.Second, discordgo.ActivityTypeListening},
	{"Peaceful Waters", 185 * time.Second, discordgo.ActivityTypeListening},
	{"Knight's Charge", 124 * time.Second, discordgo.ActivityTypeListening},
	{"Over the Next Hill", 184 * time.Second, discordgo.ActivityTypeListening},
	{"Bright Spears Dark Blood", 126 * time.Second, discordgo.ActivityTypeListening},
	{"The Road Most Traveled", 195 * time.Second, discordgo.ActivityTypeListening},
	{"Dance of Swords", 133 * time.Second, discordgo.ActivityTypeListening},
	{"Blessing of Vivec", 196 * time.Second, discordgo.ActivityTypeListening},
	{"Ambush!", 153 * time.Second, discordgo.ActivityTypeListening},
	{"Silt Sunrise", 191 * time.Second, discordgo.ActivityTypeListening},
	{"Hunter's Pursuit", 137 * time.Second, discordgo.ActivityTypeListening},
	{"Shed Your Travails", 193 * time.Second, discordgo.ActivityTypeListening},
	{"Stormclouds on the Battlefield", 131 * time.Second, discordgo.ActivityTypeListening},
	{"Caprice", 207 * time.Second, discordgo.ActivityTypeListening},
	{"Drumbeats of the Dunmer", 123 * time.Second, discordgo.ActivityTypeListening},
	{"Darkened Depths", 50 * time.Second, discordgo.ActivityTypeListening},
	{"The Prophecy Fulfilled", 71 * time.Second, discordgo.ActivityTypeListening},
	{"Triumphant", 14 * time.Second, discordgo.ActivityTypeListening},
	{"Introduction", 59 * time.Second, discordgo.ActivityTypeListening},
	{"Fate's Quickening", 17 * time.Second, discordgo.ActivityTypeListening},
	{"Vivec Arena", 5 * time.Minute, discordgo.ActivityTypeCompeting},
	{"Registration of the Nerevarine", 5 * time.Minute, discordgo.ActivityTypeWatching},
	{"Fargoth", 10 * time.Second, discordgo.ActivityTypeWatching},
	{"The Taxman's Tale", 10 * time.Second, discordgo.ActivityTypeGame},
	{"Death of a Taxman", 10 * time.Second, discordgo.ActivityTypeGame},
}

// PresenceRotator drives the bot's Discord status. While music plays the
// status is pinned to the track; otherwise it cycles through the ambient
// activities, each shown for its own duration.
type PresenceRotator struct {
	session *discordgo.Session

	mu    sync.Mutex
	timer *time.Timer
	rng   *rand.Rand
}

func NewPresenceRotator(session *discordgo.Session) *PresenceRotator {
	return &PresenceRotator{
		session: session,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetNowPlaying pins the status to the current track and halts the rotation.
func (p *PresenceRotator) SetNowPlaying(text string) {
	p.mu.Lock()
	p.stopTimerLocked()
	p.mu.Unlock()

	p.update(text, discordgo.ActivityTypeListening)
}

// SetAmbient resumes the ambient rotation with a fresh random pick.
func (p *PresenceRotator) SetAmbient() {
	p.rotate()
}

// Stop halts the rotation without touching the current status.
func (p *PresenceRotator) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimerLocked()
}

func (p *PresenceRotator) rotate() {
	p.mu.Lock()
	p.stopTimerLocked()
	activity := ambientActivities[p.rng.Intn(len(ambientActivities))]
	p.timer = time.AfterFunc(activity.duration, p.rotate)
	p.mu.Unlock()

	p.update(activity.label, activity.kind)
}

func (p *PresenceRotator) stopTimerLocked() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *PresenceRotator) update(label string, kind discordgo.ActivityType) {
	err := p.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Activities: []*discordgo.Activity{{
			Name: label,
			Type: kind,
		}},
	})
	if err != nil {
		zlog.Warn().Err(err).Str("activity", label).Msg("failed to update presence")
	}
}
