package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/alexfrmn/sys-adm-bot/internal/draft"
	"github.com/alexfrmn/sys-adm-bot/internal/queue"
	logx "github.com/alexfrmn/sys-adm-bot/pkg/logx"
	"github.com/alexfrmn/sys-adm-bot/pkg/tgui"
)

func (s *Service) handleStart(c tele.Context) error {
	return s.reply(c, tgui.JoinH("\n",
		tgui.B("Канал: очередь постов"),
		tgui.Esc(""),
		tgui.Esc("📸 Отправь фото — привяжу к посту"),
		tgui.Esc("📋 /queue — очередь постов"),
		tgui.Esc("➕ /add [now|at=2026-02-05T07:30] текст"),
		tgui.Esc("♻️ /requeue <id> [now|at=...]"),
		tgui.Esc("🎨 /prompts — промпты для картинок"),
		tgui.Esc("🧪 /check <текст> — проверка черновика"),
		tgui.Esc("📜 /history — последние отправки"),
	))
}

func (s *Service) handleQueue(c tele.Context) error {
	posts, err := s.pendingPosts()
	if err != nil {
		return s.reply(c, tgui.Esc("⚠️ не смог прочитать очередь: "+err.Error()))
	}
	if len(posts) == 0 {
		return s.reply(c, tgui.Esc("📭 Очередь пуста"))
	}

	parts := []tgui.H{tgui.B("Очередь постов:")}
	for _, p := range posts {
		parts = append(parts, tgui.Esc("• "+postPreview(p)))
	}
	return s.reply(c, tgui.JoinH("\n", parts...))
}

// postPreview renders one queue line: icon, short schedule, truncated text.
func postPreview(p *queue.Post) string {
	icon := "📝"
	if p.HasImage() {
		icon = "🖼"
	}
	text := p.Text
	if r := []rune(text); len(r) > 50 {
		text = string(r[:50]) + "..."
	}
	return fmt.Sprintf("%s #%d %s: %s", icon, p.ID, p.Scheduled.Format("02.01 15:04"), text)
}

// handleAdd enqueues a post: /add [now|at=<ts>] text...
func (s *Service) handleAdd(c tele.Context) error {
	opt, text := parseScheduleArgs(c.Message().Payload)
	p, err := s.mgr.Add(text, "", opt)
	if err != nil {
		if errors.Is(err, queue.ErrInvalidRequest) {
			return s.reply(c, tgui.Esc("⚠️ "+err.Error()))
		}
		return s.reply(c, tgui.Esc("⚠️ не смог сохранить: "+err.Error()))
	}
	s.log.Info("post added", logx.Int64("post", p.ID), logx.Time("scheduled", p.Scheduled))
	return s.reply(c, tgui.JoinH("\n",
		tgui.Esc(fmt.Sprintf("✅ Пост #%d в очереди", p.ID)),
		tgui.Esc("🗓 "+p.Scheduled.Format("02.01.2006 15:04 MST")),
	))
}

// handleRequeue resets a failed post: /requeue <id> [now|at=<ts>]
func (s *Service) handleRequeue(c tele.Context) error {
	fields := strings.Fields(c.Message().Payload)
	if len(fields) == 0 {
		return s.reply(c, tgui.Esc("использование: /requeue <id> [now|at=...]"))
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return s.reply(c, tgui.Esc("⚠️ не похоже на id: "+fields[0]))
	}
	opt, rest := parseScheduleArgs(strings.Join(fields[1:], " "))
	if rest != "" {
		return s.reply(c, tgui.Esc("использование: /requeue <id> [now|at=...]"))
	}

	p, err := s.mgr.Requeue(id, opt)
	if err != nil {
		return s.reply(c, tgui.Esc("⚠️ "+err.Error()))
	}
	s.log.Info("post requeued", logx.Int64("post", p.ID), logx.Time("scheduled", p.Scheduled))
	return s.reply(c, tgui.Esc(fmt.Sprintf("♻️ Пост #%d снова в очереди на %s", p.ID, p.Scheduled.Format("02.01 15:04"))))
}

func (s *Service) handlePrompts(c tele.Context) error {
	posts, err := s.pendingPosts()
	if err != nil {
		return s.reply(c, tgui.Esc("⚠️ не смог прочитать очередь: "+err.Error()))
	}
	if len(posts) == 0 {
		return s.reply(c, tgui.Esc("📭 Очередь пуста"))
	}

	parts := []tgui.H{tgui.B("Промпты для картинок:")}
	found := false
	for _, p := range posts {
		suggestions := draft.SuggestPrompts(p.Text)
		if len(suggestions) == 0 {
			continue
		}
		found = true
		parts = append(parts, tgui.B(fmt.Sprintf("%s (%s):", p.Scheduled.Format("02.01"), suggestions[0].Keyword)))
		parts = append(parts, tgui.Code(suggestions[0].Text))
	}
	if !found {
		return s.reply(c, tgui.Esc("🤷 ни один пост не подошёл под ключевые слова"))
	}
	return s.reply(c, tgui.JoinH("\n", parts...))
}

func (s *Service) handleCheck(c tele.Context) error {
	text := strings.TrimSpace(c.Message().Payload)
	if text == "" {
		return s.reply(c, tgui.Esc("использование: /check <текст черновика>"))
	}
	findings := draft.Findings(text)
	if len(findings) == 0 {
		return s.reply(c, tgui.Esc("✅ артефактов не нашёл"))
	}
	parts := []tgui.H{tgui.B("Нашёл в черновике:")}
	for _, f := range findings {
		parts = append(parts, tgui.JoinH(" ", tgui.Code(f.Phrase), tgui.Esc("— "+f.Note)))
	}
	return s.reply(c, tgui.JoinH("\n", parts...))
}

func (s *Service) handleHistory(c tele.Context) error {
	if s.hist == nil {
		return s.reply(c, tgui.Esc("история отключена в конфиге"))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ents, err := s.hist.Recent(ctx, 10)
	if err != nil {
		return s.reply(c, tgui.Esc("⚠️ "+err.Error()))
	}
	if len(ents) == 0 {
		return s.reply(c, tgui.Esc("пока ничего не отправлялось"))
	}
	parts := []tgui.H{tgui.B("Последние отправки:")}
	for _, e := range ents {
		mark := "✅"
		detail := ""
		if !e.OK {
			mark = "❌"
			detail = " " + e.Error
		}
		parts = append(parts, tgui.Esc(fmt.Sprintf("%s #%d %s %s%s", mark, e.PostID, e.At.Format("02.01 15:04"), e.Kind, detail)))
	}
	return s.reply(c, tgui.JoinH("\n", parts...))
}

// handlePhoto starts the attach flow: remember the photo, offer the pending
// posts as inline buttons.
func (s *Service) handlePhoto(c tele.Context) error {
	posts, err := s.pendingPosts()
	if err != nil {
		return s.reply(c, tgui.Esc("⚠️ не смог прочитать очередь: "+err.Error()))
	}
	if len(posts) == 0 {
		return s.reply(c, tgui.Esc("📭 Очередь пуста. Сначала добавь посты."))
	}

	photo := c.Message().Photo
	if photo == nil {
		return nil
	}
	// Telegram caps callback_data at 64 bytes; the file id goes into the
	// token store and only a short one-shot token rides in the button.
	token := s.photos.Put(photo.FileID)

	kb := tgui.NewInline()
	for _, p := range posts {
		kb.Row(tgui.Btn(postPreview(p), tgui.Data("attach", strconv.FormatInt(p.ID, 10), token)))
	}
	return c.Send("К какому посту привязать картинку?", kb.Markup())
}

// handleCallback finishes the attach flow.
func (s *Service) handleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	scope, idRaw, token := tgui.Split(strings.TrimPrefix(cb.Data, "\f"))
	if scope != "attach" {
		return c.Respond(&tele.CallbackResponse{})
	}
	postID, err := strconv.ParseInt(idRaw, 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ битые данные кнопки"})
	}

	fileID, ok := s.photos.Take(token)
	if !ok {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Фото не найдено, отправь заново"})
	}

	path, err := s.downloadPhoto(fileID, postID)
	if err != nil {
		s.log.Warn("photo download failed", logx.Int64("post", postID), logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "❌ не смог скачать фото"})
	}
	if err := s.mgr.Attach(postID, path); err != nil {
		s.log.Warn("attach failed", logx.Int64("post", postID), logx.Err(err))
		return c.Respond(&tele.CallbackResponse{Text: "❌ " + err.Error()})
	}

	s.log.Info("photo attached", logx.Int64("post", postID), logx.String("path", path))
	_ = c.Edit(fmt.Sprintf("✅ Картинка привязана к посту #%d", postID))
	return c.Respond(&tele.CallbackResponse{})
}

// parseScheduleArgs splits an optional leading schedule argument
// ("now" or "at=<ts>") from the rest of the payload.
func parseScheduleArgs(payload string) (queue.AddOptions, string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return queue.AddOptions{}, ""
	}
	head, rest, _ := strings.Cut(payload, " ")
	switch {
	case head == "now":
		return queue.AddOptions{Now: true}, strings.TrimSpace(rest)
	case strings.HasPrefix(head, "at="):
		return queue.AddOptions{At: strings.TrimPrefix(head, "at=")}, strings.TrimSpace(rest)
	default:
		return queue.AddOptions{}, payload
	}
}
