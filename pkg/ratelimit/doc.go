// Package ratelimit paces traversal so it resembles a person paging through
// an album.
//
// A Pacer draws a short delay from [MinDelay, MaxDelay] before every
// advancement and a longer cooldown (CooldownBase plus up to CooldownJitter)
// whenever the capture count reaches a multiple of CooldownEvery. The random
// source is injectable so tests can seed it.
//
//	pacer := ratelimit.NewPacer(cfg.RateLimit, nil)
//	if pacer.CooldownDue(captured) {
//		pacer.Cooldown(ctx)
//	}
//	pacer.Pause(ctx)
package ratelimit
