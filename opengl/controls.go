package opengl

// controls holds the playback state driven by the keyboard.
type controls struct {
	pause  bool // no automatic steps
	step   bool // a single step is pending
	forced bool // pause cannot be lifted
	quit   bool
}

func newControls(conf *Config) *controls {
	return &controls{pause: conf.ForcePause, forced: conf.ForcePause}
}

// togglePause pauses or resumes, unless pausing is forced.
func (c *controls) togglePause() {
	if !c.forced {
		c.pause = !c.pause
	}
}

// stepOnce requests a single step while paused.
func (c *controls) stepOnce() {
	if c.pause {
		c.pause = false
		c.step = true
	}
}

// tick performs the steps due for one frame. A nil step is a static source.
func (c *controls) tick(step func()) {
	if c.step {
		c.pause = true
		c.step = false
		if step != nil {
			step()
		}
		return
	}
	if !c.pause && step != nil {
		step()
	}
}
