package vulkan

// Guard collects release actions for a multi-step creation sequence. Run
// fires them in reverse registration order unless Dismiss was called first.
//
//	var g Guard
//	defer g.Run()
//	buf, err := alloc.CreateBuffer(...)
//	if err != nil {
//		return err
//	}
//	g.Add(func() { alloc.DestroyBuffer(&buf) })
//	...
//	g.Dismiss()
type Guard struct {
	releases  []func()
	dismissed bool
}

func (g *Guard) Add(release func()) {
	g.releases = append(g.releases, release)
}

// Dismiss cancels every registered release. Call it once the sequence has
// succeeded and ownership moved to the caller.
func (g *Guard) Dismiss() {
	g.dismissed = true
}

func (g *Guard) Run() {
	if g.dismissed {
		return
	}
	for i := len(g.releases) - 1; i >= 0; i-- {
		g.releases[i]()
	}
	g.releases = nil
}
