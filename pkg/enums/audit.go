package enums

// AuditAction names the operations written to the logs table.
type AuditAction string

const (
	AuditActionRegister        AuditAction = "auth.register"
	AuditActionLogin           AuditAction = "auth.login"
	AuditActionLogout          AuditAction = "auth.logout"
	AuditActionPasswordChange  AuditAction = "auth.password_change"
	AuditActionAdminCreateUser AuditAction = "admin.create_user"
	AuditActionAdminDeactivate AuditAction = "admin.deactivate_user"
	AuditActionOrderPlace      AuditAction = "order.place"
	AuditActionOrderStatus     AuditAction = "order.status"
	AuditActionOrderShipping   AuditAction = "order.assign_shipping"
	AuditActionPaymentApply    AuditAction = "payment.apply"
	AuditActionProfileUpdate   AuditAction = "user.profile_update"
)

// AuditStatus is the outcome recorded with an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)
