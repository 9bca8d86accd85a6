package dto

// CheckPasswordRequest - проверка пароля документа.
type CheckPasswordRequest struct {
	Password string `json:"password"`
}

// RequestOTPRequest - запрос кода на телефон работника.
type RequestOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

// VerifyOTPRequest - проверка кода из SMS.
type VerifyOTPRequest struct {
	Code string `json:"code" binding:"required"`
}

// SubmitDocumentRequest - отправка документа с ранее загруженным файлом.
type SubmitDocumentRequest struct {
	AssetID string `json:"asset_id" binding:"required,uuid"`
}

// CreateRemoteDocumentRequest - запрос администратора на удалённое подписание.
type CreateRemoteDocumentRequest struct {
	WorkerID    string `json:"worker_id" binding:"required,uuid"`
	TemplateID  string `json:"template_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required"`
	Password    string `json:"password"`
	RequiresOTP bool   `json:"requires_otp"`
}
