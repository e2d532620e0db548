package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/V-25K/Guess-sub004/internal/leaderboard"
	"github.com/V-25K/Guess-sub004/internal/repository"
)

type awardPointsRequest struct {
	Points int    `json:"points" binding:"required"`
	Reason string `json:"reason"`
}

// AwardPoints applies a point delta to a user: the database row first
// (authoritative), then the leaderboard sorted set via an atomic increment.
// A failed cache increment degrades ranking freshness, not correctness, so
// the award still succeeds; the next refresh converges the set.
func AwardPoints(users *repository.UserRepository, ranker *leaderboard.Ranker) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
			return
		}

		var req awardPointsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
			return
		}

		total, err := users.AddPoints(c.Request.Context(), userID, req.Points)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			} else {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to award points", "details": err.Error()})
			}
			return
		}

		// Already logged by the ranker; the database total is authoritative.
		_, _ = ranker.IncrementScore(c.Request.Context(), userID, req.Points)

		c.JSON(http.StatusOK, gin.H{
			"user_id":      userID,
			"points":       req.Points,
			"total_points": total,
		})
	}
}
