package rbac

const (
	PermDocumentsQuery  = "documents.query"
	PermDocumentsUpload = "documents.upload"
	PermDocumentsDelete = "documents.delete"
	PermChatsCreate     = "chats.create"
	PermPersonasManage  = "personas.manage"
	PermRolesManage     = "roles.manage"
	PermUsersManage     = "users.manage"
)

// BuiltinPermissions is the baseline catalog seeded at startup. The table
// remains data-driven; these rows only guarantee the UI has something to
// toggle on a fresh database.
var BuiltinPermissions = []Permission{
	{Name: PermDocumentsQuery, Description: "Ask questions against the document corpus"},
	{Name: PermDocumentsUpload, Description: "Upload documents"},
	{Name: PermDocumentsDelete, Description: "Delete documents"},
	{Name: PermChatsCreate, Description: "Create chat conversations"},
	{Name: PermPersonasManage, Description: "Create and edit personas"},
	{Name: PermRolesManage, Description: "Manage roles and permissions"},
	{Name: PermUsersManage, Description: "Manage user accounts"},
}
