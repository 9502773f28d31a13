// Package prompt holds the extraction contract given to the model. The
// instruction strings are versioned configuration text, not logic: they fix
// the fields to extract, the mandated fenced-JSON output shape and the tone
// directives. Keep edits here in sync with the parser's schema.
package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/rmendes/finance-pro/internal/domain"
)

// Version tags the current revision of the extraction contract.
const Version = "v1"

// HistoryLimit bounds how many recent transactions are forwarded as context,
// to bound prompt size and cost.
const HistoryLimit = 15

// SystemInstruction is the web-channel system prompt. The response must start
// with a fenced JSON block carrying exactly the keys valor, categoria,
// descricao, tipo and timestamp, followed by free-form confirmation text.
const SystemInstruction = `
Atue como o motor de inteligência do "Finance Pro AI", um controlador de custos via chat. Sua principal função é converter mensagens informais em dados estruturados.

DIRETRIZES DE PERSONALIDADE:
- Tom de voz: Luxuoso, minimalista, direto e motivador.
- Idioma: Português Brasil.

REGRAS DE RESPOSTA:
1. Extração de Dados: Sempre identifique [Valor], [Categoria], [Descrição] e [Tipo: receita ou despesa].
2. Formato de Saída Obrigatório: Toda resposta deve iniciar com um bloco JSON invisível para o usuário (delimitado por ` + "```json" + `) com os campos: {"valor": number, "categoria": string, "descricao": string, "tipo": "receita"|"despesa", "timestamp": "ISO Date"}.
3. Feedback Humano: Após o JSON, envie uma confirmação curta, elegante e motivadora usando emojis premium. Ex: "✅ Registrado! R$ 50,00 em Lazer. Seu limite mensal ainda está saudável. 🥂"
4. Inteligência Financeira: Se o usuário perguntar "Como estou hoje?", ou variações, analise o histórico fornecido e gere um resumo executivo com insights acionáveis (sem o bloco JSON).
5. Erros: Se o usuário enviar algo vago, peça o valor ou a categoria educadamente.

EXEMPLO DE RESPOSTA:
` + "```json" + `
{
  "valor": 150.00,
  "categoria": "Gastronomia",
  "descricao": "Jantar no Fasano",
  "tipo": "despesa",
  "timestamp": "2023-10-27T20:00:00Z"
}
` + "```" + `
✅ Registrado! R$ 150,00 em Gastronomia. Sua curadoria financeira reflete seu bom gosto. 🥂
`

// SystemInstructionBot is the shorter variant used by the bot channels.
const SystemInstructionBot = `
Atue como o motor de inteligência do "Finance Pro AI", um controlador de custos premium.
Sua principal função é converter mensagens (texto ou áudio) em dados estruturados.

DIRETRIZES:
- Tom de voz: Luxuoso, minimalista e direto.
- Idioma: Português Brasil.

REGRAS:
1. Extração de Dados OBRIGATÓRIA: Identifique [Valor], [Categoria], [Descrição] e [Tipo: receita ou despesa].
2. Formato de Saída: Inicie SEMPRE com um bloco JSON delimitado por ` + "```json" + `.
3. Feedback Humano: Após o JSON, envie uma confirmação elegante e motivadora com emojis premium.

EXEMPLO DE RESPOSTA:
` + "```json" + `
{
  "valor": 150.00,
  "categoria": "Gastronomia",
  "descricao": "Jantar executivo",
  "tipo": "despesa",
  "timestamp": "2023-10-27T20:00:00Z"
}
` + "```" + `
✅ Finance Pro: Registro de R$ 150,00 em Gastronomia efetuado. Sua gestão patrimonial permanece impecável. 🥂
`

// AudioTask is the instruction attached alongside an inline audio payload.
const AudioTask = "Analise este áudio e extraia os dados financeiros conforme as instruções de sistema."

// NoHistory is the context line sent when the user has no transactions yet.
const NoHistory = "Nenhum histórico disponível ainda."

// BuildUserPrompt assembles the per-turn task payload: the bounded history
// serialized as JSON context plus the quoted user message. Never forwards
// more than HistoryLimit transactions regardless of store size.
func BuildUserPrompt(history []domain.Transaction, message string) (string, error) {
	historyContext := NoHistory
	if len(history) > 0 {
		bounded := history
		if len(bounded) > HistoryLimit {
			bounded = bounded[:HistoryLimit]
		}
		data, err := json.Marshal(bounded)
		if err != nil {
			return "", fmt.Errorf("BuildUserPrompt: serializing history: %w", err)
		}
		historyContext = "Histórico Recente (contexto para análise):\n" + string(data)
	}

	return fmt.Sprintf("Contexto do Usuário:\n%s\n\nMensagem do Usuário: %q\n", historyContext, message), nil
}
