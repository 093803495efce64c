package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/gotd/td/tg"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

// Marked ids follow the Bot API convention so that users, basic groups and
// channels share one id space.
const channelIDOffset int64 = 1000000000000

func markUser(id int64) int64    { return id }
func markChat(id int64) int64    { return -id }
func markChannel(id int64) int64 { return -(channelIDOffset + id) }

// unmark splits a marked id into its kind and bare id.
func unmark(id int64) (platform.PeerKind, int64) {
	switch {
	case id > 0:
		return platform.PeerUser, id
	case id < -channelIDOffset:
		return platform.PeerChannel, -id - channelIDOffset
	default:
		return platform.PeerChat, -id
	}
}

func markPeer(p tg.PeerClass) (int64, bool) {
	switch p := p.(type) {
	case *tg.PeerUser:
		return markUser(p.UserID), true
	case *tg.PeerChat:
		return markChat(p.ChatID), true
	case *tg.PeerChannel:
		return markChannel(p.ChannelID), true
	default:
		return 0, false
	}
}

func inputPeer(p platform.Peer) tg.InputPeerClass {
	kind, id := unmark(p.ID)
	switch kind {
	case platform.PeerUser:
		return &tg.InputPeerUser{UserID: id, AccessHash: p.AccessHash}
	case platform.PeerChannel:
		return &tg.InputPeerChannel{ChannelID: id, AccessHash: p.AccessHash}
	default:
		return &tg.InputPeerChat{ChatID: id}
	}
}

// entities indexes the users and chats that come with RPC results.
type entities struct {
	peers  []platform.Peer
	titles map[int64]string
}

func collectEntities(users []tg.UserClass, chats []tg.ChatClass) entities {
	e := entities{titles: make(map[int64]string, len(users)+len(chats))}

	for _, u := range users {
		user, ok := u.(*tg.User)
		if !ok {
			continue
		}
		id := markUser(user.ID)
		e.peers = append(e.peers, platform.Peer{ID: id, Kind: platform.PeerUser, AccessHash: user.AccessHash})
		e.titles[id] = userTitle(user)
	}

	for _, c := range chats {
		switch chat := c.(type) {
		case *tg.Chat:
			id := markChat(chat.ID)
			e.peers = append(e.peers, platform.Peer{ID: id, Kind: platform.PeerChat})
			e.titles[id] = chat.Title
		case *tg.ChatForbidden:
			id := markChat(chat.ID)
			e.peers = append(e.peers, platform.Peer{ID: id, Kind: platform.PeerChat})
			e.titles[id] = chat.Title
		case *tg.Channel:
			id := markChannel(chat.ID)
			e.peers = append(e.peers, platform.Peer{ID: id, Kind: platform.PeerChannel, AccessHash: chat.AccessHash})
			e.titles[id] = chat.Title
		case *tg.ChannelForbidden:
			id := markChannel(chat.ID)
			e.peers = append(e.peers, platform.Peer{ID: id, Kind: platform.PeerChannel, AccessHash: chat.AccessHash})
			e.titles[id] = chat.Title
		}
	}
	return e
}

func userTitle(u *tg.User) string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Deleted {
		return "Deleted Account"
	}
	return ""
}

// remember caches peers seen in a result.
func (c *conn) remember(ctx context.Context, e entities) error {
	if err := c.storage.StorePeers(ctx, e.peers); err != nil {
		return fmt.Errorf("cache peers: %w", err)
	}
	return nil
}

// resolve returns the input peer for a marked id. Basic groups need no
// access hash and resolve without the cache.
func (c *conn) resolve(ctx context.Context, id int64) (tg.InputPeerClass, error) {
	if kind, bare := unmark(id); kind == platform.PeerChat {
		return &tg.InputPeerChat{ChatID: bare}, nil
	}

	p, ok, err := c.storage.LookupPeer(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %d", platform.ErrPeerNotFound, id)
	}
	return inputPeer(p), nil
}
