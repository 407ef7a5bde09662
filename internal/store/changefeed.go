package store

import (
	"context"
	"log/slog"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/metrics"
	"cypher_arena/internal/realtime"
)

// ChangeFeed publishes a row-change notification after every successful
// write of the wrapped store. A failed publish is logged and dropped; the
// write itself stands.
//
// Channels:
//
//	room members  realtime.RowChannel("room_members", "room_id", roomID)
//	match insert  realtime.RowChannel("matches", "room_id", roomID)
//	match update  realtime.RowChannel("matches", "id", matchID)
//	rooms         realtime.TableChannel("rooms")
type ChangeFeed struct {
	Store
	bus realtime.Bus
	log *slog.Logger
}

func WithChangeFeed(inner Store, bus realtime.Bus) *ChangeFeed {
	return &ChangeFeed{Store: inner, bus: bus, log: logger.For("changefeed")}
}

func MembersChannel(roomID string) string {
	return realtime.RowChannel(realtime.TableRoomMembers, "room_id", roomID)
}

func RoomMatchesChannel(roomID string) string {
	return realtime.RowChannel(realtime.TableMatches, "room_id", roomID)
}

func MatchRowChannel(matchID string) string {
	return realtime.RowChannel(realtime.TableMatches, "id", matchID)
}

func (f *ChangeFeed) publish(ctx context.Context, channel string, typ realtime.ChangeType, table string, oldRow, newRow any) {
	c, err := realtime.NewChange(typ, table, oldRow, newRow)
	if err == nil {
		err = f.bus.Publish(ctx, channel, realtime.EventChange, c)
	}
	if err != nil {
		metrics.TransportErrors.WithLabelValues("change").Inc()
		f.log.Warn("failed to publish change", "op", string(typ), "table", table, "channel", channel, "error", err)
	}
}

func (f *ChangeFeed) CreateRoom(ctx context.Context, code, hostID string) (domain.Room, error) {
	r, err := f.Store.CreateRoom(ctx, code, hostID)
	if err != nil {
		return r, err
	}
	f.publish(ctx, realtime.TableChannel(realtime.TableRooms), realtime.Insert, realtime.TableRooms, nil, r)
	return r, nil
}

func (f *ChangeFeed) DeactivateRoom(ctx context.Context, roomID string) error {
	if err := f.Store.DeactivateRoom(ctx, roomID); err != nil {
		return err
	}
	f.publish(ctx, realtime.TableChannel(realtime.TableRooms), realtime.Update, realtime.TableRooms, nil,
		map[string]any{"id": roomID, "is_active": false})
	return nil
}

func (f *ChangeFeed) AddMember(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	m, err := f.Store.AddMember(ctx, roomID, playerID, status)
	if err != nil {
		return m, err
	}
	f.publish(ctx, MembersChannel(roomID), realtime.Insert, realtime.TableRoomMembers, nil, m)
	return m, nil
}

func (f *ChangeFeed) RemoveMember(ctx context.Context, roomID, playerID string) error {
	old, lookupErr := f.Store.Member(ctx, roomID, playerID)
	if err := f.Store.RemoveMember(ctx, roomID, playerID); err != nil {
		return err
	}
	if lookupErr != nil {
		old = domain.RoomMember{RoomID: roomID, PlayerID: playerID}
	}
	f.publish(ctx, MembersChannel(roomID), realtime.Delete, realtime.TableRoomMembers, old, nil)
	return nil
}

func (f *ChangeFeed) SetMemberStatus(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	m, err := f.Store.SetMemberStatus(ctx, roomID, playerID, status)
	if err != nil {
		return m, err
	}
	f.publish(ctx, MembersChannel(roomID), realtime.Update, realtime.TableRoomMembers, nil, m)
	return m, nil
}

func (f *ChangeFeed) CompareAndSetMemberStatus(ctx context.Context, roomID, playerID string, from, to domain.MemberStatus) (bool, error) {
	ok, err := f.Store.CompareAndSetMemberStatus(ctx, roomID, playerID, from, to)
	if err != nil || !ok {
		return ok, err
	}
	if m, err := f.Store.Member(ctx, roomID, playerID); err == nil {
		f.publish(ctx, MembersChannel(roomID), realtime.Update, realtime.TableRoomMembers, nil, m)
	}
	return true, nil
}

func (f *ChangeFeed) CreateMatch(ctx context.Context, m domain.Match) (domain.Match, error) {
	created, err := f.Store.CreateMatch(ctx, m)
	if err != nil {
		return created, err
	}
	f.publish(ctx, RoomMatchesChannel(created.RoomID), realtime.Insert, realtime.TableMatches, nil, created)
	return created, nil
}

func (f *ChangeFeed) UpdateMatch(ctx context.Context, id string, p domain.MatchPatch) (domain.Match, error) {
	updated, err := f.Store.UpdateMatch(ctx, id, p)
	if err != nil {
		return updated, err
	}
	f.publish(ctx, MatchRowChannel(id), realtime.Update, realtime.TableMatches, nil, updated)
	return updated, nil
}
