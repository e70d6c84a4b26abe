package router

import (
	"github.com/chuanghiduoc/progress-mailer/config"
	"github.com/chuanghiduoc/progress-mailer/internal/handler"
	"github.com/chuanghiduoc/progress-mailer/pkg/health"
)

type Deps struct {
	StudentHandler *handler.StudentHandler
	MailHandler    *handler.MailHandler
	Config         *config.Config
	Health         *health.Checker
}
