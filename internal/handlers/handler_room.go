package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/messmate/messmate_backend/internal/core/domain"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
)

// roomHandler handles HTTP requests related to rooms and their members.
type roomHandler struct {
	roomService portssvc.RoomSvcFacade
}

func newRoomHandler(rs portssvc.RoomSvcFacade) *roomHandler {
	return &roomHandler{roomService: rs}
}

// registerRoomRoutes registers room and membership routes.
func registerRoomRoutes(rg *gin.RouterGroup, roomService portssvc.RoomSvcFacade) {
	h := newRoomHandler(roomService)

	rooms := rg.Group("/rooms")
	{
		rooms.POST("", h.createRoom)
		rooms.GET("", h.listUserRooms)
	}

	room := rg.Group("/rooms/:room_id")
	{
		room.GET("", h.getRoom)
		room.PUT("", h.updateRoomSettings)
		room.GET("/members", h.listMembers)
		room.POST("/members", h.addMember)
		room.DELETE("/members/:user_id", h.removeMember)
	}
}

// createRoom godoc
// @Summary Create a new room
// @Description Creates a room and assigns the creator as admin.
// @Tags rooms
// @Accept json
// @Produce json
// @Param room body dto.CreateRoomRequest true "Room details"
// @Success 201 {object} dto.RoomResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /rooms [post]
func (h *roomHandler) createRoom(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	var req dto.CreateRoomRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), req, userID)
	if err != nil {
		respondError(c, logger, err, "create room")
		return
	}

	logger.Info("Room created", slog.String("room_id", room.RoomID))
	c.JSON(http.StatusCreated, dto.ToRoomResponse(*room))
}

// listUserRooms godoc
// @Summary List rooms for the current user
// @Tags rooms
// @Produce json
// @Success 200 {array} dto.RoomResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /rooms [get]
func (h *roomHandler) listUserRooms(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}

	rooms, err := h.roomService.ListUserRooms(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, err, "list rooms")
		return
	}

	resp := make([]dto.RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		resp = append(resp, dto.ToRoomResponse(r))
	}
	c.JSON(http.StatusOK, resp)
}

// getRoom godoc
// @Summary Get a room
// @Tags rooms
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {object} dto.RoomResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room not found"
// @Security BearerAuth
// @Router /rooms/{room_id} [get]
func (h *roomHandler) getRoom(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	if err := h.roomService.AuthorizeUserAction(c.Request.Context(), userID, roomID, domain.RoleMember); err != nil {
		respondError(c, logger, err, "get room")
		return
	}
	room, err := h.roomService.FindRoomByID(c.Request.Context(), roomID)
	if err != nil {
		respondError(c, logger, err, "get room")
		return
	}
	c.JSON(http.StatusOK, dto.ToRoomResponse(*room))
}

// updateRoomSettings godoc
// @Summary Update room settings
// @Description Changes room name, period mode or carry policy. Admin only.
// @Tags rooms
// @Accept json
// @Produce json
// @Param room_id path string true "Room ID"
// @Param settings body dto.UpdateRoomSettingsRequest true "Settings"
// @Success 200 {object} dto.RoomResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id} [put]
func (h *roomHandler) updateRoomSettings(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.UpdateRoomSettingsRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	room, err := h.roomService.UpdateRoomSettings(c.Request.Context(), roomID, req, userID)
	if err != nil {
		respondError(c, logger, err, "update room settings")
		return
	}

	logger.Info("Room settings updated", slog.String("room_id", roomID))
	c.JSON(http.StatusOK, dto.ToRoomResponse(*room))
}

// listMembers godoc
// @Summary List room members
// @Tags rooms
// @Produce json
// @Param room_id path string true "Room ID"
// @Success 200 {array} dto.MemberResponse
// @Failure 403 {object} map[string]string "Forbidden"
// @Security BearerAuth
// @Router /rooms/{room_id}/members [get]
func (h *roomHandler) listMembers(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	members, err := h.roomService.ListRoomMembers(c.Request.Context(), roomID, userID)
	if err != nil {
		respondError(c, logger, err, "list members")
		return
	}

	resp := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, dto.ToMemberResponse(m))
	}
	c.JSON(http.StatusOK, resp)
}

// addMember godoc
// @Summary Add a member to a room
// @Description Adds a user with a role. Admin only.
// @Tags rooms
// @Accept json
// @Param room_id path string true "Room ID"
// @Param member body dto.AddMemberRequest true "User ID and role"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Room or user not found"
// @Security BearerAuth
// @Router /rooms/{room_id}/members [post]
func (h *roomHandler) addMember(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")

	var req dto.AddMemberRequest
	if !bindJSON(c, logger, &req) {
		return
	}

	err := h.roomService.AddUserToRoom(c.Request.Context(), userID, req.UserID, roomID, domain.UserRoomRole(req.Role))
	if err != nil {
		respondError(c, logger, err, "add member")
		return
	}

	logger.Info("Member added", slog.String("room_id", roomID), slog.String("target_user_id", req.UserID))
	c.Status(http.StatusNoContent)
}

// removeMember godoc
// @Summary Remove a member from a room
// @Description Marks the member as removed. Admin only. Their ledger rows stay.
// @Tags rooms
// @Param room_id path string true "Room ID"
// @Param user_id path string true "User ID"
// @Success 204 "No Content"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Membership not found"
// @Security BearerAuth
// @Router /rooms/{room_id}/members/{user_id} [delete]
func (h *roomHandler) removeMember(c *gin.Context) {
	logger, userID, ok := requestIdentity(c)
	if !ok {
		return
	}
	roomID := c.Param("room_id")
	targetID := c.Param("user_id")

	if err := h.roomService.RemoveUserFromRoom(c.Request.Context(), userID, targetID, roomID); err != nil {
		respondError(c, logger, err, "remove member")
		return
	}

	logger.Info("Member removed", slog.String("room_id", roomID), slog.String("target_user_id", targetID))
	c.Status(http.StatusNoContent)
}
