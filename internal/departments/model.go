package departments

// Department は departments テーブルの1行（部署マスタ）
type Department struct {
	DepartmentID uint   `json:"id"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	IsDisabled   bool   `json:"is_disabled"`
}

type CreateDepartmentRequest struct {
	Name string `json:"name" binding:"required"`
	Code string `json:"code" binding:"required"`
}

type UpdateDepartmentRequest struct {
	Name       string `json:"name" binding:"required"`
	Code       string `json:"code" binding:"required"`
	IsDisabled bool   `json:"is_disabled"`
}
