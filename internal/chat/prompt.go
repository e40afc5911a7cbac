package chat

import (
	"fmt"
	"strings"

	"buybuzz-be/internal/product"
	"buybuzz-be/internal/utils"
)

const assistantBrief = `You are Nova, an enthusiastic and persuasive AI shopping assistant for BuyBuzz, an Indian e-commerce platform. Your primary goals are:

1. Help users find the perfect products from our catalog
2. Answer questions about product features, specifications, and benefits
3. Persuade and influence users to make purchases by highlighting product value
4. Create urgency when appropriate (limited stock, great deals)
5. Be friendly, helpful, and use Indian Rupees (₹) for all prices

Key guidelines:
- Always be enthusiastic about BuyBuzz products
- Highlight unique features and benefits
- Compare products when asked
- Suggest complementary items
- Use social proof (popular items, high ratings)
- Address concerns proactively
- Close conversations by encouraging purchase

`

// BuildSystemPrompt renders the assistant brief followed by the catalog. A nil
// catalog leaves the product section out.
func BuildSystemPrompt(catalog []product.Product) string {
	var b strings.Builder
	b.WriteString(assistantBrief)

	if catalog == nil {
		return b.String()
	}

	b.WriteString("\n\nAvailable products at BuyBuzz:\n")
	for i, p := range catalog {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- %s: ₹%s (%s, Stock: %d)\n  %s",
			p.Name,
			p.Price.String(),
			utils.PtrString(p.Category),
			p.StockQuantity,
			utils.PtrString(p.Description),
		)
	}
	return b.String()
}

func buildMessages(system string, req Request) []Message {
	var history []Message
	if req.ConversationHistory != nil {
		history = *req.ConversationHistory
	}

	msgs := make([]Message, 0, len(history)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: req.Message})
	return msgs
}
