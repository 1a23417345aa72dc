// Package enrollflow は受講登録の遅延実行フローを提供する。
// 未認証のユーザーが受講登録を試みた場合、登録インテントを
// リターン先 URL に載せてサインイン画面へ誘導し、認証完了後に
// そのインテントを一度だけ再実行する。
package enrollflow

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"github.com/google/uuid"

	"github.com/hitoshi/techknots/internal/apiclient"
	"github.com/hitoshi/techknots/internal/idp"
)

// URL クエリパラメータのキー。インテントはページリロードを
// 跨いで生存する必要があるため URL 上に保持する。
const (
	paramCourse    = "enroll"
	paramIntent    = "enroll_intent"
	paramProcessed = "enroll_done"
	paramReturnURL = "returnUrl"
)

// loginPath はサインイン画面の入口パス。
const loginPath = "/login"

// EnrollmentAPI は遅延登録フローが必要とする登録 API の操作。
// apiclient.Client がこのインターフェースを満たす。
type EnrollmentAPI interface {
	Enroll(ctx context.Context, courseID string) (*apiclient.Enrollment, error)
	MyEnrollments(ctx context.Context) ([]string, error)
}

// AuthSession は認証状態の参照と変更通知の購読を提供する。
// idp.Session がこのインターフェースを満たす。
type AuthSession interface {
	CurrentUser() *idp.User
	Subscribe(fn func(*idp.User)) func()
}

// Navigator は現在位置の参照と画面遷移を抽象化する。
// Navigate は別画面への遷移、ReplaceURL はリロードを伴わない
// 現在 URL の書き換えに使う。
type Navigator interface {
	CurrentURL() *url.URL
	Navigate(rawURL string)
	ReplaceURL(rawURL string)
}

// Notifier はユーザーへの結果通知を抽象化する。
type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

var (
	_ EnrollmentAPI = (*apiclient.Client)(nil)
	_ AuthSession   = (*idp.Session)(nil)
)

// Flow は遅延登録フローの本体。認証状態の変更を購読し、
// URL 上のインテントを検出して一度だけ再実行する。
// ローカルの受講済みセットは楽観的に更新され、サインイン時に
// サーバー側の記録で全置換される(真実の所在は常にサーバー)。
type Flow struct {
	api      EnrollmentAPI
	session  AuthSession
	nav      Navigator
	notifier Notifier
	logger   *slog.Logger

	mu          sync.Mutex
	enrolled    map[string]struct{}
	inFlight    bool
	closed      bool
	unsubscribe func()
}

// New は Flow を生成し、認証状態の購読を開始する。
// 購読は登録時に現在の状態で即座に発火するため、リロード直後の
// ページでもインテントの再実行が漏れない。
func New(api EnrollmentAPI, session AuthSession, nav Navigator, notifier Notifier, logger *slog.Logger) *Flow {
	f := &Flow{
		api:      api,
		session:  session,
		nav:      nav,
		notifier: notifier,
		logger:   logger,
		enrolled: make(map[string]struct{}),
	}
	f.unsubscribe = session.Subscribe(f.handleAuthChange)
	return f
}

// RequestEnroll は受講登録の起点。認証済みであれば直ちに登録 API を
// 呼び出し、未認証であればインテントを付与したリターン先 URL を
// 組み立ててサインイン画面へ遷移する(API は呼ばない)。
func (f *Flow) RequestEnroll(ctx context.Context, courseID string) error {
	if f.session.CurrentUser() == nil {
		f.nav.Navigate(f.loginURL(courseID))
		return nil
	}

	enrollment, err := f.api.Enroll(ctx, courseID)
	if err != nil {
		f.logger.Warn("受講登録に失敗しました", "course_id", courseID, "error", err)
		f.notifier.NotifyError("受講登録に失敗しました。時間をおいてもう一度お試しください。")
		return err
	}

	f.markEnrolled(enrollment.CourseID)
	f.notifier.NotifySuccess("受講登録が完了しました。")
	return nil
}

// Enrolled は courseID がローカルの受講済みセットに含まれるかを返す。
func (f *Flow) Enrolled(courseID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.enrolled[courseID]
	return ok
}

// Close は認証状態の購読を停止する。Close 後に届いた通知は
// フローの状態を変更しない。
func (f *Flow) Close() {
	f.mu.Lock()
	f.closed = true
	unsub := f.unsubscribe
	f.unsubscribe = nil
	f.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

// handleAuthChange は認証状態の変更ごとに呼ばれる。サインアウト時は
// 受講済みセットを即座に破棄し、サインイン時はサーバー側の記録で
// セットを置き換えたうえで URL 上のインテントを再実行する。
func (f *Flow) handleAuthChange(user *idp.User) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	if user == nil {
		f.enrolled = make(map[string]struct{})
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	ctx := context.Background()
	f.reconcile(ctx)
	f.replayIntent(ctx)
}

// reconcile はサーバー側の受講記録でローカルセットを全置換する。
// 取得に失敗した場合(エンドポイント未実装の 404 を含む)は
// 致命的に扱わず、現在のセットを保持する。
func (f *Flow) reconcile(ctx context.Context) {
	courseIDs, err := f.api.MyEnrollments(ctx)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.IsNotFound() {
			f.logger.Debug("受講一覧エンドポイントが存在しないため同期をスキップします")
			return
		}
		f.logger.Warn("受講一覧の取得に失敗しました", "error", err)
		return
	}

	next := make(map[string]struct{}, len(courseIDs))
	for _, id := range courseIDs {
		next[id] = struct{}{}
	}

	f.mu.Lock()
	if !f.closed {
		f.enrolled = next
	}
	f.mu.Unlock()
}

// replayIntent は URL 上の未処理インテントを検出して登録 API を
// 呼び出す。同一インテントの再実行は処理済みマーカーと
// 実行中ガードの二段で防ぐ。
func (f *Flow) replayIntent(ctx context.Context) {
	current := f.nav.CurrentURL()
	query := current.Query()
	courseID := query.Get(paramCourse)
	intentID := query.Get(paramIntent)
	if courseID == "" || intentID == "" {
		return
	}
	if query.Get(paramProcessed) == intentID {
		return
	}

	f.mu.Lock()
	if f.inFlight || f.closed {
		f.mu.Unlock()
		return
	}
	f.inFlight = true
	f.mu.Unlock()

	enrollment, err := f.api.Enroll(ctx, courseID)
	if err != nil {
		// 自動リトライはしない。インテントを URL から取り除き、
		// カタログ画面からの明示的な再操作に委ねる。
		f.logger.Warn("インテントの再実行に失敗しました", "course_id", courseID, "error", err)
		f.replaceQuery(current, func(q url.Values) {
			q.Del(paramCourse)
			q.Del(paramIntent)
		})
		f.notifier.NotifyError("受講登録に失敗しました。コース一覧からもう一度お試しください。")
		f.clearInFlight()
		return
	}

	// 処理済みマーカーの書き込みを先に行う。後続の冗長な
	// 認証通知がインテントを再読みしても再実行されない。
	f.replaceQuery(current, func(q url.Values) {
		q.Set(paramProcessed, intentID)
	})
	f.markEnrolled(enrollment.CourseID)
	f.notifier.NotifySuccess("受講登録が完了しました。")
	f.clearInFlight()
}

func (f *Flow) clearInFlight() {
	f.mu.Lock()
	f.inFlight = false
	f.mu.Unlock()
}

func (f *Flow) markEnrolled(courseID string) {
	f.mu.Lock()
	if !f.closed {
		f.enrolled[courseID] = struct{}{}
	}
	f.mu.Unlock()
}

// loginURL はインテントを埋め込んだリターン先を持つサインイン URL を
// 組み立てる。インテント ID は再実行の一回性を識別するキーになる。
func (f *Flow) loginURL(courseID string) string {
	current := f.nav.CurrentURL()
	query := current.Query()
	query.Set(paramCourse, courseID)
	query.Set(paramIntent, uuid.NewString())
	query.Del(paramProcessed)

	returnURL := url.URL{Path: current.Path, RawQuery: query.Encode()}
	login := url.URL{
		Path:     loginPath,
		RawQuery: url.Values{paramReturnURL: {returnURL.String()}}.Encode(),
	}
	return login.String()
}

// replaceQuery は現在 URL のクエリを書き換えて Navigator に反映する。
func (f *Flow) replaceQuery(current *url.URL, mutate func(url.Values)) {
	query := current.Query()
	mutate(query)
	next := url.URL{Path: current.Path, RawQuery: query.Encode()}
	f.nav.ReplaceURL(next.String())
}
