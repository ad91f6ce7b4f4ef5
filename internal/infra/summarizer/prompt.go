package summarizer

import (
	"fmt"
	"strings"

	"github.com/ivision/agency-books/internal/analytics"
	"github.com/ivision/agency-books/internal/domain"
)

// RecentLimit is how many of the newest transactions are listed in the prompt.
const RecentLimit = 15

// BuildPrompt renders the accountant prompt for a ledger in store order.
func BuildPrompt(txs []domain.Transaction) string {
	totals := analytics.Totals(txs)

	recent := txs
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	lines := make([]string, 0, len(recent))
	for _, tx := range recent {
		lines = append(lines, fmt.Sprintf("- %s: %s de %s DA (%s)",
			tx.OccurredAt.UTC().Format("2006-01-02"),
			tx.Kind,
			tx.Amount.String(),
			tx.Category,
		))
	}

	var b strings.Builder
	b.WriteString("Agis en tant qu'expert comptable senior pour l'agence \"Ivision\".\n")
	b.WriteString("Voici les données financières actuelles (Devise: Dinar Algérien - DA):\n")
	fmt.Fprintf(&b, "- Total Revenus: %s DA\n", totals.Income.String())
	fmt.Fprintf(&b, "- Total Dépenses: %s DA\n", totals.Expense.String())
	fmt.Fprintf(&b, "- Solde: %s DA\n", totals.Balance.String())
	fmt.Fprintf(&b, "- Nombre de transactions: %d\n\n", totals.Count)
	b.WriteString("Historique récent:\n")
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n\n")
	b.WriteString("Fournis une analyse concise en français (max 100 mots).\n")
	b.WriteString("1. Commente la santé financière actuelle.\n")
	b.WriteString("2. Donne un conseil stratégique pour améliorer la rentabilité.\n")
	b.WriteString("Utilise un ton professionnel et encourageant.\n")
	return b.String()
}
