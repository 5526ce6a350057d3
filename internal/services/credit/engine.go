package credit

import (
	"time"

	"creditdesk/internal/models"
)

// Evaluate scores the customer's history and decides the request in one
// step. Callers holding a cached score use Decide directly.
func Evaluate(req Request, customer *models.Customer, loans []models.Loan, today time.Time) (Decision, error) {
	score := MinScore
	if customer != nil {
		score = Score(*customer, loans, today)
	}
	return Decide(req, customer, loans, score, today)
}
