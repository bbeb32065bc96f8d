// Package groups implements the group registry: creation, invite codes,
// membership and the my-groups listing.
package groups

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"browntable/internal/apperr"
	"browntable/internal/groups/db"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/utils"
)

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 3
	defaultMaxMembers  = 10
	qrSize             = 256
)

// UserDirectory is the slice of the identity store the registry needs for
// invites.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (*models.User, error)
}

// OrderLedger opens the group's first order; every group gets an empty
// order the moment it exists.
type OrderLedger interface {
	OpenInitialOrder(ctx context.Context, group *models.Group, creatorID string) (*models.Order, error)
}

type Service struct {
	db          db.DBLayer
	users       UserDirectory
	orders      OrderLedger
	log         *logger.Logger
	frontendURL string
}

func NewService(dbLayer db.DBLayer, users UserDirectory, orders OrderLedger, log *logger.Logger, frontendURL string) *Service {
	return &Service{db: dbLayer, users: users, orders: orders, log: log, frontendURL: frontendURL}
}

// CreateGroup opens a new group with the caller as its admin member and an
// empty current order. The invite code is regenerated on the rare
// collision.
func (s *Service) CreateGroup(ctx context.Context, session *models.Session, req models.CreateGroupRequest) (*models.Group, error) {
	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.ArrivalTime) == "" {
		return nil, apperr.Validation("date and arrival time are required")
	}

	adminName := strings.TrimSpace(req.AdminName)
	if adminName == "" {
		adminName = session.Name
	}

	var lastErr error
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		group := &models.Group{
			ID:            uuid.NewString(),
			Name:          adminName + "'s Group",
			GroupAdminID:  session.UserID,
			InviteCode:    utils.GenerateInviteCode(inviteCodeLength),
			ArrivalTime:   req.ArrivalTime,
			DepartureTime: req.DepartureTime,
			Date:          req.Date,
			Status:        models.GroupStatusActive,
			MaxMembers:    max(req.GuestCount, defaultMaxMembers),
			Restaurant:    "The Brown Table",
			GuestCount:    req.GuestCount,
			CreatedAt:     time.Now(),
		}
		admin := &models.GroupMember{
			GroupID:     group.ID,
			UserID:      session.UserID,
			Name:        session.Name,
			Avatar:      session.Avatar,
			Color:       session.Color,
			IsAdmin:     true,
			HasAccepted: true,
			JoinedAt:    time.Now(),
		}

		err := s.db.CreateGroup(ctx, group, admin)
		if err == nil {
			order, err := s.orders.OpenInitialOrder(ctx, group, session.UserID)
			if err != nil {
				return nil, err
			}
			group.CurrentOrderID = order.ID
			s.log.Info("GROUP", fmt.Sprintf("Group %s created by %s (code %s)", group.ID, session.UserID, group.InviteCode))
			group.Members = []*models.GroupMember{admin}
			return group, nil
		}
		if !apperr.IsKind(err, apperr.KindConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, apperr.Internal(lastErr, "failed to allocate a unique invite code")
}

// JoinByInviteCode adds the caller to the group behind the code.
func (s *Service) JoinByInviteCode(ctx context.Context, session *models.Session, code string) (*models.Group, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation("invite code is required")
	}

	group, err := s.db.GetGroupByInviteCode(ctx, code)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("invalid invite code")
		}
		return nil, err
	}
	if err := s.addMember(ctx, group, session); err != nil {
		return nil, err
	}

	// Joining consumes any pending invite for the same group.
	_ = s.db.RemovePendingInvite(ctx, session.UserID, group.ID)

	s.log.Info("GROUP", fmt.Sprintf("User %s joined group %s", session.UserID, group.ID))
	return s.db.GetGroupByID(ctx, group.ID)
}

func (s *Service) addMember(ctx context.Context, group *models.Group, session *models.Session) error {
	switch group.Status {
	case models.GroupStatusCancelled, models.GroupStatusCompleted:
		return apperr.Conflict("this group is no longer accepting members")
	}
	if group.IsMember(session.UserID) {
		return apperr.Conflict("already a member of this group")
	}
	if len(group.Members) >= group.MaxMembers {
		return apperr.Conflict("group is full")
	}

	return s.db.AddMember(ctx, &models.GroupMember{
		GroupID:     group.ID,
		UserID:      session.UserID,
		Name:        session.Name,
		Avatar:      session.Avatar,
		Color:       session.Color,
		HasAccepted: true,
		JoinedAt:    time.Now(),
	})
}

// InviteByPhone records a pending invite for a registered diner; they see
// it in their notifications and accept or reject it. Only the group admin
// sends invites; everyone else shares the invite link instead.
func (s *Service) InviteByPhone(ctx context.Context, session *models.Session, req models.InviteUserRequest) (*models.PendingInvite, error) {
	if req.GroupID == "" || strings.TrimSpace(req.Phone) == "" {
		return nil, apperr.Validation("group id and phone are required")
	}

	group, err := s.db.GetGroupByID(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if group.GroupAdminID != session.UserID {
		return nil, apperr.Forbidden("only the group admin can invite members")
	}

	invitee, err := s.users.GetUserByPhone(ctx, strings.TrimSpace(req.Phone))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("no registered user with this phone number")
		}
		return nil, err
	}
	if group.IsMember(invitee.ID) {
		return nil, apperr.Conflict("user is already a member of this group")
	}
	if len(group.Members) >= group.MaxMembers {
		return nil, apperr.Conflict("group is full")
	}

	invite := &models.PendingInvite{
		UserID:    invitee.ID,
		GroupID:   group.ID,
		GroupName: group.Name,
		InvitedBy: session.Name,
		InvitedAt: time.Now(),
	}
	if err := s.db.AddPendingInvite(ctx, invite); err != nil {
		return nil, err
	}

	s.log.Info("GROUP", fmt.Sprintf("User %s invited to group %s by %s", invitee.ID, group.ID, session.UserID))
	return invite, nil
}

// AcceptInvite turns a pending invite into a membership.
func (s *Service) AcceptInvite(ctx context.Context, session *models.Session, groupID string) (*models.Group, error) {
	if _, err := s.db.GetPendingInvite(ctx, session.UserID, groupID); err != nil {
		return nil, err
	}

	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			// The group vanished after the invite was sent; drop the invite.
			_ = s.db.RemovePendingInvite(ctx, session.UserID, groupID)
			return nil, apperr.NotFound("this group no longer exists")
		}
		return nil, err
	}
	if err := s.addMember(ctx, group, session); err != nil {
		return nil, err
	}
	if err := s.db.RemovePendingInvite(ctx, session.UserID, groupID); err != nil {
		return nil, err
	}

	s.log.Info("GROUP", fmt.Sprintf("User %s accepted invite to group %s", session.UserID, groupID))
	return s.db.GetGroupByID(ctx, groupID)
}

// RejectInvite discards a pending invite.
func (s *Service) RejectInvite(ctx context.Context, session *models.Session, groupID string) error {
	if _, err := s.db.GetPendingInvite(ctx, session.UserID, groupID); err != nil {
		return err
	}
	return s.db.RemovePendingInvite(ctx, session.UserID, groupID)
}

// UpdateGroup applies the member-editable fields. Table binding and
// discounts are the group admin's call.
func (s *Service) UpdateGroup(ctx context.Context, session *models.Session, groupID string, req models.UpdateGroupRequest) (*models.Group, error) {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	member := group.MemberFor(session.UserID)
	if member == nil {
		return nil, apperr.Forbidden("not a member of this group")
	}
	if (req.TableNumber != nil || req.Discount != nil) && !member.IsAdmin {
		return nil, apperr.Forbidden("only the group admin can change table or discount")
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		group.Name = name
	}
	if req.ArrivalTime != nil {
		group.ArrivalTime = *req.ArrivalTime
	}
	if req.DepartureTime != nil {
		group.DepartureTime = *req.DepartureTime
	}
	if req.Date != nil {
		group.Date = *req.Date
	}
	if req.TableNumber != nil {
		group.TableNumber = *req.TableNumber
	}
	if req.Discount != nil {
		if *req.Discount < 0 {
			return nil, apperr.Validation("discount cannot be negative")
		}
		group.Discount = *req.Discount
	}
	group.UpdatedAt = time.Now()

	if err := s.db.UpdateGroup(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

// DeleteGroup removes the group and everything attached to it. Any current
// member may do this.
func (s *Service) DeleteGroup(ctx context.Context, session *models.Session, groupID string) error {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.IsMember(session.UserID) {
		return apperr.Forbidden("not a member of this group")
	}
	if err := s.db.DeleteGroupCascade(ctx, groupID); err != nil {
		return err
	}
	s.log.Info("GROUP", fmt.Sprintf("Group %s deleted by %s", groupID, session.UserID))
	return nil
}

// MyGroups lists every group the caller belongs to, newest first, with the
// compact order block attached.
func (s *Service) MyGroups(ctx context.Context, session *models.Session) ([]models.GroupSummary, error) {
	groupRows, err := s.db.ListGroupsForUser(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.GroupSummary, 0, len(groupRows))
	for i := range groupRows {
		g := &groupRows[i]
		member := g.MemberFor(session.UserID)
		role := "member"
		if member != nil && member.IsAdmin {
			role = "admin"
		}

		summary := models.GroupSummary{
			ID:           g.ID,
			Name:         g.Name,
			GroupAdminID: g.GroupAdminID,
			InviteCode:   g.InviteCode,
			ArrivalTime:  g.ArrivalTime,
			Departure:    g.DepartureTime,
			Date:         g.Date,
			TableNumber:  g.TableNumber,
			Discount:     g.Discount,
			Status:       g.Status,
			Restaurant:   g.Restaurant,
			MemberCount:  len(g.Members),
			MaxMembers:   g.MaxMembers,
			IsAdmin:      role == "admin",
			UserRole:     role,
			Members:      g.Members,
			CreatedAt:    g.CreatedAt,
			UpdatedAt:    g.UpdatedAt,
		}
		if g.CurrentOrderID != "" {
			order, err := s.db.GetOrderSummary(ctx, g.CurrentOrderID)
			if err == nil {
				summary.Order = order
			} else if !apperr.IsKind(err, apperr.KindNotFound) {
				return nil, err
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// GroupByID returns the full group for members.
func (s *Service) GroupByID(ctx context.Context, session *models.Session, groupID string) (*models.Group, error) {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsMember(session.UserID) {
		return nil, apperr.Forbidden("not a member of this group")
	}
	return group, nil
}

// Preview returns the public projection behind an invite code, shown
// before joining.
func (s *Service) Preview(ctx context.Context, code string) (*models.GroupPreview, error) {
	group, err := s.db.GetGroupByInviteCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("invalid invite code")
		}
		return nil, err
	}
	return &models.GroupPreview{
		ID:            group.ID,
		Name:          group.Name,
		ArrivalTime:   group.ArrivalTime,
		DepartureTime: group.DepartureTime,
		Date:          group.Date,
		MemberCount:   len(group.Members),
	}, nil
}

// InviteLink builds the shareable join URL for a group the caller belongs
// to.
func (s *Service) InviteLink(ctx context.Context, session *models.Session, groupID string) (string, error) {
	group, err := s.db.GetGroupByID(ctx, groupID)
	if err != nil {
		return "", err
	}
	if !group.IsMember(session.UserID) {
		return "", apperr.Forbidden("not a member of this group")
	}
	return fmt.Sprintf("%s/join/%s", strings.TrimRight(s.frontendURL, "/"), group.InviteCode), nil
}

// InviteQR renders the join URL as a PNG QR code.
func (s *Service) InviteQR(ctx context.Context, session *models.Session, groupID string) ([]byte, error) {
	link, err := s.InviteLink(ctx, session, groupID)
	if err != nil {
		return nil, err
	}
	return s.renderQR(link)
}

// InviteQRByCode renders the QR for anyone already holding the invite code;
// the code itself is the credential.
func (s *Service) InviteQRByCode(ctx context.Context, code string) ([]byte, error) {
	code = strings.TrimSpace(code)
	if _, err := s.db.GetGroupByInviteCode(ctx, code); err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("invalid invite code")
		}
		return nil, err
	}
	link := fmt.Sprintf("%s/join/%s", strings.TrimRight(s.frontendURL, "/"), code)
	return s.renderQR(link)
}

func (s *Service) renderQR(link string) ([]byte, error) {
	png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, apperr.Internal(err, "failed to render QR code")
	}
	return png, nil
}
