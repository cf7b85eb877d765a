// Package email arma y entrega las notificaciones de recuperación de cuenta.
//
// Builder valida y produce un Message inmutable; Notifier lo entrega por un
// Transport (SMTP, SES o pretend) y reduce cualquier falla a un *MailError
// con un mensaje apto para el usuario final.
package email
