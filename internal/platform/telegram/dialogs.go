package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/gotd/td/tg"

	"github.com/dmitrijs2005/gophgram/internal/platform"
)

// pageSize is the largest page the platform serves per request.
const pageSize = 100

func (c *conn) Dialogs(ctx context.Context, q platform.DialogsQuery) ([]platform.Dialog, error) {
	out := make([]platform.Dialog, 0, max(q.Limit, 0))

	req := &tg.MessagesGetDialogsRequest{OffsetPeer: &tg.InputPeerEmpty{}}
	if !q.OffsetDate.IsZero() {
		req.OffsetDate = int(q.OffsetDate.Unix())
	}

	for len(out) < q.Limit {
		req.Limit = min(q.Limit-len(out), pageSize)

		res, err := c.api.MessagesGetDialogs(ctx, req)
		if err != nil {
			return nil, translate(err)
		}

		p, err := dialogsPage(res)
		if err != nil {
			return nil, err
		}
		if err := c.remember(ctx, p.entities); err != nil {
			return nil, err
		}
		out = append(out, p.dialogs...)

		// Folder entries count against the page limit but produce no
		// dialog, so the end of the list is judged on the raw count.
		if p.complete || p.raw < req.Limit || p.last == nil {
			break
		}
		req.OffsetDate = p.last.date
		req.OffsetID = p.last.msgID
		req.OffsetPeer = p.last.peer
	}
	return out, nil
}

type dialogCursor struct {
	date  int
	msgID int
	peer  tg.InputPeerClass
}

type page struct {
	dialogs  []platform.Dialog
	entities entities
	// raw is the number of entries the platform returned, skipped ones
	// included.
	raw int
	// complete means the platform returned every dialog in one response.
	complete bool
	last     *dialogCursor
}

func dialogsPage(res tg.MessagesDialogsClass) (page, error) {
	var (
		dialogs  []tg.DialogClass
		messages []tg.MessageClass
		users    []tg.UserClass
		chats    []tg.ChatClass
		p        page
	)
	switch r := res.(type) {
	case *tg.MessagesDialogs:
		dialogs, messages, users, chats = r.Dialogs, r.Messages, r.Users, r.Chats
		p.complete = true
	case *tg.MessagesDialogsSlice:
		dialogs, messages, users, chats = r.Dialogs, r.Messages, r.Users, r.Chats
	case *tg.MessagesDialogsNotModified:
		p.complete = true
		return p, nil
	default:
		return p, fmt.Errorf("telegram: unexpected dialogs result %T", res)
	}

	p.raw = len(dialogs)
	p.entities = collectEntities(users, chats)
	hashes := make(map[int64]int64, len(p.entities.peers))
	for _, peer := range p.entities.peers {
		hashes[peer.ID] = peer.AccessHash
	}
	dates := topMessageDates(messages)

	for _, d := range dialogs {
		dlg, ok := d.(*tg.Dialog)
		if !ok {
			continue
		}
		id, ok := markPeer(dlg.Peer)
		if !ok {
			continue
		}

		out := platform.Dialog{ID: id, Title: p.entities.titles[id]}
		key := msgKey{peer: id, id: dlg.TopMessage}
		if date, ok := dates[key]; ok && date > 0 {
			out.Date = time.Unix(int64(date), 0).UTC()
		}
		p.dialogs = append(p.dialogs, out)

		kind, _ := unmark(id)
		p.last = &dialogCursor{
			date:  dates[key],
			msgID: dlg.TopMessage,
			peer:  inputPeer(platform.Peer{ID: id, Kind: kind, AccessHash: hashes[id]}),
		}
	}
	return p, nil
}

type msgKey struct {
	peer int64
	id   int
}

func topMessageDates(messages []tg.MessageClass) map[msgKey]int {
	dates := make(map[msgKey]int, len(messages))
	for _, m := range messages {
		var (
			peer tg.PeerClass
			id   int
			date int
		)
		switch msg := m.(type) {
		case *tg.Message:
			peer, id, date = msg.PeerID, msg.ID, msg.Date
		case *tg.MessageService:
			peer, id, date = msg.PeerID, msg.ID, msg.Date
		default:
			continue
		}
		if pid, ok := markPeer(peer); ok {
			dates[msgKey{peer: pid, id: id}] = date
		}
	}
	return dates
}
