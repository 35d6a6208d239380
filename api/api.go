package api

import (
	"context"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/santosoadam/coursemarket/api/middleware"
	"github.com/santosoadam/coursemarket/api/web"
	"github.com/santosoadam/coursemarket/core/auth"
	"github.com/santosoadam/coursemarket/core/cart"
	"github.com/santosoadam/coursemarket/core/course"
	"github.com/santosoadam/coursemarket/core/instructor"
	"github.com/santosoadam/coursemarket/core/payment"
	"github.com/santosoadam/coursemarket/core/user"
	"github.com/santosoadam/coursemarket/core/wishlist"
	"github.com/santosoadam/coursemarket/gateway/midtrans"
	"github.com/santosoadam/coursemarket/rate"
)

type APIConfig struct {
	CorsOrigin       string
	Log              logrus.FieldLogger
	DB               *sqlx.DB
	Session          *scs.SessionManager
	Gateway          *midtrans.Client
	AuthLimiter      *rate.Limiter
	Providers        map[string]auth.Provider
	LoginRedirectURL string
}

type api struct {
	*mux.Router
	mw  []web.Middleware
	log logrus.FieldLogger
}

func APIMux(cfg APIConfig) http.Handler {
	a := &api{
		Router: mux.NewRouter(),
		log:    cfg.Log,
	}

	a.mw = append(a.mw, auth.LoadAndSave(cfg.Session))
	a.mw = append(a.mw, middleware.RequestID())
	a.mw = append(a.mw, middleware.Logger(cfg.Log))
	a.mw = append(a.mw, middleware.Errors(cfg.Log))
	a.mw = append(a.mw, middleware.Panics())

	if cfg.CorsOrigin != "" {
		a.mw = append(a.mw, middleware.Cors(cfg.CorsOrigin))

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			w.WriteHeader(http.StatusNoContent)
			return nil
		}

		a.Handle(http.MethodOptions, "/{path:.*}", h)
	}

	authen := auth.Authenticate(cfg.Session)
	tutor := auth.Instructor(cfg.Session)
	limited := middleware.RateLimit(cfg.AuthLimiter)

	a.Handle(http.MethodPost, "/auth/signup", auth.HandleSignup(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/login", auth.HandleLogin(cfg.DB, cfg.Session), limited)
	a.Handle(http.MethodPost, "/auth/logout", auth.HandleLogout(cfg.Session), authen)
	a.Handle(http.MethodGet, "/auth/oauth-login/{provider}", auth.HandleOauthLogin(cfg.Session, cfg.Providers))
	a.Handle(http.MethodGet, "/auth/oauth-callback/{provider}", auth.HandleOauthCallback(cfg.DB, cfg.Session, cfg.Providers, cfg.LoginRedirectURL))

	a.Handle(http.MethodGet, "/users/current", user.HandleShowCurrent(cfg.DB), authen)
	a.Handle(http.MethodPut, "/users/current", user.HandleUpdateProfile(cfg.DB), authen)
	a.Handle(http.MethodPost, "/users/instructor", user.HandleBecomeInstructor(cfg.DB), authen)

	a.Handle(http.MethodGet, "/courses/owned", course.HandleListOwned(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/taught", course.HandleListTaught(cfg.DB), tutor)
	a.Handle(http.MethodGet, "/courses/{course_id}/curriculum", course.HandleShowCurriculum(cfg.DB))
	a.Handle(http.MethodPost, "/courses/{course_id}/chapters", course.HandleCreateChapter(cfg.DB), tutor)
	a.Handle(http.MethodPut, "/courses/{course_id}/chapters/{chapter_id}", course.HandleUpdateChapter(cfg.DB), tutor)
	a.Handle(http.MethodDelete, "/courses/{course_id}/chapters/{chapter_id}", course.HandleDeleteChapter(cfg.DB), tutor)
	a.Handle(http.MethodPost, "/courses/{course_id}/chapters/{chapter_id}/contents", course.HandleCreateContent(cfg.DB), tutor)
	a.Handle(http.MethodPut, "/courses/{course_id}/chapters/{chapter_id}/contents/{content_id}", course.HandleUpdateContent(cfg.DB), tutor)
	a.Handle(http.MethodDelete, "/courses/{course_id}/chapters/{chapter_id}/contents/{content_id}", course.HandleDeleteContent(cfg.DB), tutor)
	a.Handle(http.MethodPost, "/courses/{id}/publish", course.HandlePublish(cfg.DB), tutor)
	a.Handle(http.MethodPost, "/courses/{id}/enroll", course.HandleEnrollFree(cfg.DB), authen)
	a.Handle(http.MethodGet, "/courses/{slug}", course.HandleShow(cfg.DB))
	a.Handle(http.MethodGet, "/courses", course.HandleList(cfg.DB))
	a.Handle(http.MethodPost, "/courses", course.HandleCreate(cfg.DB), tutor)
	a.Handle(http.MethodPut, "/courses/{id}", course.HandleUpdate(cfg.DB), tutor)

	a.Handle(http.MethodGet, "/cart", cart.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart", cart.HandleDelete(cfg.DB), authen)
	a.Handle(http.MethodPut, "/cart/items", cart.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/cart/items/{course_id}", cart.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodGet, "/wishlist", wishlist.HandleShow(cfg.DB), authen)
	a.Handle(http.MethodPut, "/wishlist/items", wishlist.HandleCreateItem(cfg.DB), authen)
	a.Handle(http.MethodDelete, "/wishlist/items/{course_id}", wishlist.HandleDeleteItem(cfg.DB), authen)

	a.Handle(http.MethodPost, "/payment/create", payment.HandleCreate(cfg.DB, cfg.Gateway), authen)
	a.Handle(http.MethodPost, "/payment/notification", payment.HandleNotification(cfg.DB, cfg.Gateway, cfg.Log))
	a.Handle(http.MethodGet, "/payment/status/{order_id}", payment.HandleStatus(cfg.DB), authen)

	a.Handle(http.MethodGet, "/instructor/earnings", payment.HandleEarnings(cfg.DB), tutor)
	a.Handle(http.MethodGet, "/instructor/profile", instructor.HandleShowProfile(cfg.DB), tutor)
	a.Handle(http.MethodPut, "/instructor/bank-account", instructor.HandleUpdateBankAccount(cfg.DB), tutor)

	return a.Router
}

func (a *api) Handle(method string, path string, handler web.Handler, mw ...web.Middleware) {

	handler = web.WrapMiddleware(mw, handler)

	handler = web.WrapMiddleware(a.mw, handler)

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		if err := handler(ctx, w, r); err != nil {

			a.log.WithFields(logrus.Fields{
				"req_id":  middleware.ContextRequestID(ctx),
				"message": err,
			}).Error("ERROR")
		}
	})

	a.Router.Handle(path, h).Methods(method)
}
