package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/V-25K/Guess-sub004/internal/leaderboard"
	"github.com/V-25K/Guess-sub004/internal/middleware"
)

// GetLeaderboard returns one leaderboard page together with the requesting
// user's own rank and pagination metadata
func GetLeaderboard(ranker *leaderboard.Ranker) gin.HandlerFunc {
	return func(c *gin.Context) {
		page := parseIntQuery(c, "page", 0)
		pageSize := parseIntQuery(c, "page_size", leaderboard.DefaultPageSize)

		userID, _ := middleware.UserID(c)

		result := ranker.GetLeaderboardWithUser(c.Request.Context(), userID, pageSize, page)
		c.JSON(http.StatusOK, result)
	}
}

// GetTopPlayers returns the top slice of the leaderboard
func GetTopPlayers(ranker *leaderboard.Ranker) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntQuery(c, "limit", leaderboard.DefaultPageSize)
		offset := parseIntQuery(c, "offset", 0)

		entries := ranker.GetTopPlayers(c.Request.Context(), limit, offset)

		c.JSON(http.StatusOK, gin.H{
			"leaderboard": entries,
			"total_users": ranker.GetTotalPlayerCount(c.Request.Context()),
		})
	}
}

// GetUserRank returns one user's competition rank
func GetUserRank(ranker *leaderboard.Ranker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
			return
		}

		rank, err := ranker.GetUserRank(c.Request.Context(), userID)
		if err != nil {
			// Both the sorted set and the relational fallback failed;
			// that is an outage, not an unranked user.
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Leaderboard temporarily unavailable"})
			return
		}
		if rank == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No rank recorded for user"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id": userID,
			"rank":    *rank,
		})
	}
}

// RefreshLeaderboard rebuilds the sorted set from the database. Called by
// the platform scheduler to repair drift or warm a cold cache.
func RefreshLeaderboard(ranker *leaderboard.Ranker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ranker.RefreshLeaderboard(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to refresh leaderboard", "details": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
	}
}

// RemoveLeaderboardUser drops a user from the cached leaderboard, used when
// an account is deleted. The database row is handled elsewhere.
func RemoveLeaderboardUser(ranker *leaderboard.Ranker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
			return
		}

		if err := ranker.RemoveUser(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove user from leaderboard"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "removed"})
	}
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.DefaultQuery(name, strconv.Itoa(fallback))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
