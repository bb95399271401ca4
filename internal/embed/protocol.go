// Package embed implements the parent/iframe handshake protocol between a
// host page's loader and the widget page: READY announcement, BOOT
// configuration hand-off, and ongoing RESIZE height propagation.
//
// The message-type constants are the wire contract shared with the
// JavaScript loader (web/static/loader.js) and the widget page; changing
// them breaks every deployed embed.
package embed

import (
	"fmt"
	"net/url"
	"strings"
)

// Message types posted over the cross-document channel.
const (
	TypeReady  = "OFA_CALCULATOR_READY"
	TypeBoot   = "OFA_CALCULATOR_BOOT"
	TypeResize = "OFA_CALCULATOR_RESIZE"
)

// heightPadding is added to the widget's measured content height so the
// iframe never clips drop-shadows or expanding validation messages.
const heightPadding = 100

// BootPayload is the configuration the loader hands the widget at handshake
// time. Constructed once per page load, never mutated afterwards.
type BootPayload struct {
	APIBase       string  `json:"apiBase"`
	ConfigVersion string  `json:"configVersion"`
	Theme         string  `json:"theme"`
	ReferralToken *string `json:"referralToken"`
}

// Message is one protocol frame. Payload is set only on BOOT, Height only
// on RESIZE.
type Message struct {
	Type    string       `json:"type"`
	Payload *BootPayload `json:"payload,omitempty"`
	Height  int          `json:"height,omitempty"`
}

// Port is one side's outgoing half of the cross-document channel. The two
// methods are deliberately distinct: Broadcast posts with a wildcard target
// and is the only legal way to send before the peer's origin is confirmed;
// Send is restricted to a known origin. Receiving is handled by the state
// machines, which filter by origin where the protocol requires it.
type Port interface {
	Broadcast(Message)
	Send(msg Message, origin string)
}

// LoaderState tracks the loader's half of the handshake.
type LoaderState int

const (
	LoaderIdle LoaderState = iota
	LoaderWaitingForReady
	LoaderBooted
)

// Loader is the host-page side of the protocol. It pins the widget origin
// derived from iframeBase at construction time; every incoming message from
// any other origin is dropped silently, in both directions of the handshake.
type Loader struct {
	origin string
	base   *url.URL
	boot   BootPayload
	port   Port
	resize func(height int)
	state  LoaderState
}

// NewLoader builds a Loader trusting only the origin of iframeBase.
func NewLoader(iframeBase string, boot BootPayload, port Port, onResize func(height int)) (*Loader, error) {
	u, err := url.Parse(iframeBase)
	if err != nil {
		return nil, fmt.Errorf("parse iframe base: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("iframe base %q must be an absolute URL", iframeBase)
	}
	return &Loader{
		origin: u.Scheme + "://" + u.Host,
		base:   u,
		boot:   boot,
		port:   port,
		resize: onResize,
		state:  LoaderIdle,
	}, nil
}

// Origin returns the single origin this loader accepts messages from.
func (l *Loader) Origin() string { return l.origin }

// State returns the loader's current handshake state.
func (l *Loader) State() LoaderState { return l.state }

// EmbedURL builds the iframe src for a form variant, carrying the config
// version and theme as query parameters so the widget can render before
// BOOT arrives.
func (l *Loader) EmbedURL(variant string) string {
	u := *l.base
	u.Path = strings.TrimRight(u.Path, "/") + "/embed/" + variant
	q := u.Query()
	q.Set("v", l.boot.ConfigVersion)
	q.Set("theme", l.boot.Theme)
	u.RawQuery = q.Encode()
	return u.String()
}

// Attach marks the iframe as created and the loader as listening.
func (l *Loader) Attach() {
	if l.state == LoaderIdle {
		l.state = LoaderWaitingForReady
	}
}

// HandleMessage processes one incoming frame. origin is the browser-reported
// origin of the sender; anything other than the pinned widget origin is
// ignored without logging, which is the security posture rather than an
// error condition.
func (l *Loader) HandleMessage(origin string, msg Message) {
	if origin != l.origin {
		return
	}
	switch msg.Type {
	case TypeReady:
		if l.state == LoaderIdle {
			return
		}
		// The BOOT answer is targeted: the origin is confirmed now, so
		// there is no reason to broadcast.
		l.port.Send(Message{Type: TypeBoot, Payload: &l.boot}, l.origin)
		l.state = LoaderBooted
	case TypeResize:
		if msg.Height > 0 && l.resize != nil {
			l.resize(msg.Height)
		}
	}
}

// WidgetState tracks the widget's half of the handshake.
type WidgetState int

const (
	WidgetAwaitingBoot WidgetState = iota
	WidgetReady
)

// Widget is the iframe side of the protocol. Before the loader answers, the
// widget does not know who its parent is, so its sends are broadcasts; a
// widget that never receives BOOT stays in AwaitingBoot indefinitely and
// falls back to its own page origin for API calls.
type Widget struct {
	port   Port
	state  WidgetState
	boot   *BootPayload
	onBoot func(BootPayload)
}

// NewWidget builds a Widget posting through port. onBoot, if non-nil, fires
// once when the boot payload arrives.
func NewWidget(port Port, onBoot func(BootPayload)) *Widget {
	return &Widget{port: port, onBoot: onBoot}
}

// State returns the widget's current handshake state.
func (w *Widget) State() WidgetState { return w.state }

// Announce broadcasts READY to the parent window. It is a broadcast by
// necessity: the parent's origin is unknown until BOOT arrives.
func (w *Widget) Announce() {
	w.port.Broadcast(Message{Type: TypeReady})
}

// HandleMessage processes one incoming frame. Only the first BOOT carrying
// a payload is honored; the payload is then held for the page's lifetime.
func (w *Widget) HandleMessage(msg Message) {
	if msg.Type != TypeBoot || msg.Payload == nil || w.state != WidgetAwaitingBoot {
		return
	}
	payload := *msg.Payload
	w.boot = &payload
	w.state = WidgetReady
	if w.onBoot != nil {
		w.onBoot(payload)
	}
}

// Boot returns the stored boot payload, if one has arrived.
func (w *Widget) Boot() (BootPayload, bool) {
	if w.boot == nil {
		return BootPayload{}, false
	}
	return *w.boot, true
}

// APIBase returns the API base from the boot payload, or fallback (normally
// the widget page's own origin) when the handshake never completed.
func (w *Widget) APIBase(fallback string) string {
	if w.boot != nil && w.boot.APIBase != "" {
		return w.boot.APIBase
	}
	return fallback
}

// ReportHeight broadcasts a RESIZE frame for the given content height plus
// the fixed padding allowance. Messages carry no sequence numbers; the
// channel's in-order delivery within a page makes last-wins safe.
func (w *Widget) ReportHeight(contentHeight int) {
	if contentHeight < 0 {
		return
	}
	w.port.Broadcast(Message{Type: TypeResize, Height: contentHeight + heightPadding})
}
