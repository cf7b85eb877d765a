// Package logger es el logger zap del servicio de recuperación.
//
// Hay una instancia global (Init / L) y un logger por request que el
// middleware de logging guarda en el contexto con request_id, method, path y
// client_ip. Los servicios lo toman con From(ctx) y le suman component, flow
// y user_id. En dev se escribe a consola con colores, en prod JSON.
//
// Los emails nunca se loguean en claro: Email(v) enmascara con MaskEmail.
//
//	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Component("PasswordReset"))
//	log.Info("flow finished", logger.UserID(u.ID))
//
// En tests se puede reemplazar la instancia global con ReplaceForTests.
package logger
