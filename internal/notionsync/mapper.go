package notionsync

import (
	"github.com/jomei/notionapi"

	"github.com/rmendes/finance-pro/internal/domain"
)

// TransactionToNotionProperties maps one recorded transaction to the Notion
// database schema: Descrição (title), Valor, Categoria, Tipo, Data and a
// Transaction ID rich text used for dedup across runs.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		"Descrição": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.Descricao,
					},
				},
			},
		},
		"Valor": notionapi.NumberProperty{
			Number: tx.Valor,
		},
		"Tipo": notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: string(tx.Tipo),
			},
		},
		"Transaction ID": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{
					Type: notionapi.ObjectTypeText,
					Text: &notionapi.Text{
						Content: tx.ID,
					},
				},
			},
		},
	}

	if tx.Categoria != "" {
		props["Categoria"] = notionapi.SelectProperty{
			Select: notionapi.Option{
				Name: tx.Categoria,
			},
		}
	}

	if ts := tx.Time(); !ts.IsZero() {
		d := notionapi.Date(ts)
		props["Data"] = notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: &d,
			},
		}
	}

	return props
}
