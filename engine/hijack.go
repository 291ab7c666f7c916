package engine

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// AllowFunc decides whether an intercepted request may proceed, given its
// resource type. It runs inside the page's network event loop and must be
// non-blocking.
type AllowFunc func(resourceType proto.NetworkResourceType) bool

// configToProto maps human-readable config strings to protocol resource types.
var configToProto = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Manifest":   proto.NetworkResourceTypeManifest,
	"Script":     proto.NetworkResourceTypeScript,
}

// BlockPolicy builds an AllowFunc that denies the named resource types and
// allows everything else. Unknown names are ignored. Returns nil when
// nothing would be blocked, meaning no interception should be installed.
func BlockPolicy(blockedTypes []string) AllowFunc {
	blocked := make(map[proto.NetworkResourceType]struct{}, len(blockedTypes))
	for _, name := range blockedTypes {
		if rt, ok := configToProto[name]; ok {
			blocked[rt] = struct{}{}
		}
	}
	if len(blocked) == 0 {
		return nil
	}
	return func(rt proto.NetworkResourceType) bool {
		_, deny := blocked[rt]
		return !deny
	}
}

// mountHijack installs a request interceptor on the page driven by the allow
// policy. The callback is defensive: a panic inside it resolves to allowing
// the request, never to hanging the interception pipeline.
//
// Returns the running HijackRouter so the caller can defer router.Stop().
func mountHijack(page *rod.Page, allow AllowFunc) *rod.HijackRouter {
	router := page.HijackRequests()

	// Pattern "*" + empty resourceType = intercept ALL requests, then
	// decide per-request whether to abort or continue.
	_ = router.Add("*", "", func(ctx *rod.Hijack) {
		defer func() {
			if r := recover(); r != nil {
				slog.Warn("interception callback panicked, allowing request", "panic", r)
				ctx.ContinueRequest(&proto.FetchContinueRequest{})
			}
		}()

		if !allow(ctx.Request.Type()) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
	})

	// router.Run() blocks, so it must live in its own goroutine.
	// It exits when router.Stop() is called.
	go router.Run()

	return router
}
